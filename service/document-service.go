package service

import (
	"bytes"
	"text/template"

	"facad/repository"
	"facad/scoring"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// requestDocument is the human-readable request summary handed to the
// printing/archiving collaborators. Formatting rules are out of scope;
// this template is a plain-text placeholder for them.
var requestDocument = template.Must(template.New("request").Parse(
	`CAREER ADVANCEMENT REQUEST #{{.Process.Id}}
Requester: {{.Process.Requester.DisplayName}} ({{.Process.Requester.Registry}})
Type: {{.Process.Type}}
Movement: {{.Process.OriginClass}} {{.Process.OriginLevel}} -> {{.Process.DestinationClass}} {{.Process.DestinationLevel}}
Interstice: {{.Process.IntersticeStart.Format "2006-01-02"}} to {{.Process.IntersticeEnd.Format "2006-01-02"}}
Campus: {{.Process.Campus}} - {{.Process.City}}
Status: {{.Process.Status}}
{{if .Process.FinalPoints}}Final points: {{.Process.FinalPoints.StringFixed 2}}
{{end}}
Claimed points by block:
{{range .Nodes}}  {{.Name}}: {{.Total.StringFixed 2}}
{{end}}Total: {{.Total.StringFixed 2}}
`))

type documentNode struct {
	Name  string
	Total decimal.Decimal
}

type DocumentService struct {
	DB                *gorm.DB
	processRepository *repository.ProcessRepository
	tableRepository   *repository.ScoringTableRepository
	scoreRepository   *repository.ProcessScoreRepository
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{
		DB:                db,
		processRepository: repository.NewProcessRepository(db),
		tableRepository:   repository.NewScoringTableRepository(db),
		scoreRepository:   repository.NewProcessScoreRepository(db),
	}
}

// RenderProcessDocument renders the request document for a process the
// requester owns, from a fresh aggregation of its current ledger.
func (s *DocumentService) RenderProcessDocument(requesterId int, processId int) ([]byte, error) {
	process, err := s.processRepository.GetProcessForRequester(processId, requesterId, "Requester")
	if err != nil {
		return nil, notFound(err, "process")
	}
	nodes, err := s.tableRepository.GetNodesForTable(process.TableId)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepository.GetScoresForProcess(process.Id)
	if err != nil {
		return nil, err
	}

	tree := scoring.BuildTree(nodes)
	result, err := scoring.Aggregate(tree, scores, scoring.TrackSelf)
	if err != nil {
		return nil, err
	}

	documentNodes := make([]documentNode, 0, len(tree))
	for _, root := range tree {
		documentNodes = append(documentNodes, documentNode{
			Name:  root.Name,
			Total: result.NodeTotals[root.Id],
		})
	}

	var buffer bytes.Buffer
	err = requestDocument.Execute(&buffer, map[string]any{
		"Process": process,
		"Nodes":   documentNodes,
		"Total":   result.GrandTotal,
	})
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
