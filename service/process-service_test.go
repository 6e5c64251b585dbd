package service

import (
	"fmt"
	"log"
	"testing"
	"time"

	"facad/app_error"
	"facad/config"
	"facad/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var db *gorm.DB

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run("postgres", "17.2-alpine", []string{"POSTGRES_USER=postgres", "POSTGRES_PASSWORD=postgres", "DATABASE_NAME=postgres"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	resource.Expire(600)
	sqlInfo := fmt.Sprintf(
		"host=localhost port=%s user=postgres password=postgres dbname=postgres sslmode=disable search_path=facad",
		resource.GetPort("5432/tcp"))

	if err := pool.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(sqlInfo), &gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				TablePrefix:   "facad.",
				SingularTable: false,
			},
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return err
		}
		return config.Migrate(db)
	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}

	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}()
	m.Run()
}

func TearDown() {
	db.Exec("DELETE FROM facad.process_node_scores")
	db.Exec("DELETE FROM facad.process_scores")
	db.Exec("DELETE FROM facad.career_processes")
	db.Exec("DELETE FROM facad.evidence_files")
	db.Exec("DELETE FROM facad.scoring_items")
	db.Exec("DELETE FROM facad.scoring_nodes")
	db.Exec("DELETE FROM facad.scoring_tables")
	db.Exec("DELETE FROM facad.users")
}

func ptr[T any](v T) *T {
	return &v
}

type fixture struct {
	requester    *repository.User
	table        *repository.ScoringTable
	quantityItem *repository.ScoringItem
	cappedItem   *repository.ScoringItem
}

// SetUp creates one requester and one currently valid scoring table with
// a quantity item worth 60 points per unit and a capped item with a 100
// point ceiling.
func SetUp() *fixture {
	requester := &repository.User{
		DisplayName: "prof1",
		Registry:    "12345",
		Permissions: pq.StringArray{},
	}
	if err := db.Create(requester).Error; err != nil {
		log.Fatalf("Error creating requester: %v", err)
	}

	table := &repository.ScoringTable{
		Name:     "table1",
		StartsOn: time.Now().AddDate(-1, 0, 0),
		Nodes: []*repository.ScoringNode{
			{
				Name:      "Teaching",
				Code:      ptr("I"),
				SortOrder: 1,
				Active:    true,
				Items: []*repository.ScoringItem{
					{Description: "Course hours", Unit: "hour", Points: decimal.NewFromInt(60)},
				},
			},
			{
				Name:      "Research",
				Code:      ptr("II"),
				SortOrder: 2,
				Active:    true,
				Items: []*repository.ScoringItem{
					{
						Description:  "Publications",
						Unit:         "publication",
						Points:       decimal.NewFromInt(100),
						HasMaxPoints: true,
						MaxPoints:    ptr(decimal.NewFromInt(100)),
					},
				},
			},
		},
	}
	if err := db.Create(table).Error; err != nil {
		log.Fatalf("Error creating scoring table: %v", err)
	}
	return &fixture{
		requester:    requester,
		table:        table,
		quantityItem: table.Nodes[0].Items[0],
		cappedItem:   table.Nodes[1].Items[0],
	}
}

func draftProcess() *repository.CareerProcess {
	return &repository.CareerProcess{
		Type:             repository.ProcessTypeProgression,
		OriginClass:      "D-I",
		OriginLevel:      "1",
		DestinationClass: "D-I",
		DestinationLevel: "2",
		IntersticeStart:  time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		IntersticeEnd:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Campus:           "Central",
		City:             "Natal",
	}
}

func attachEvidence(t *testing.T, f *fixture, processId int, itemId int) {
	file := &repository.EvidenceFile{
		Id:          uuid.New(),
		OwnerId:     f.requester.Id,
		Name:        "certificate.pdf",
		MimeType:    "application/pdf",
		Size:        128,
		StoragePath: "/tmp/" + uuid.NewString(),
	}
	if err := db.Create(file).Error; err != nil {
		t.Fatalf("Error creating evidence file: %v", err)
	}
	_, err := NewScoreService(db).AttachEvidence(f.requester.Id, processId, itemId, file.Id)
	assert.Nil(t, err)
}

func TestOpenProcessCreatesDraft(t *testing.T) {
	f := SetUp()
	defer TearDown()

	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)
	assert.Equal(t, repository.StatusDraft, process.Status)
	assert.Equal(t, f.table.Id, process.TableId)
	assert.Nil(t, process.FinalPoints)
}

func TestOpenProcessRejectsSecondOpenProcess(t *testing.T) {
	f := SetUp()
	defer TearDown()
	service := NewProcessService(db)

	_, err := service.OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	_, err = service.OpenProcess(f.requester.Id, draftProcess())
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestOpenProcessRejectsDisallowedMovement(t *testing.T) {
	f := SetUp()
	defer TearDown()

	process := draftProcess()
	process.DestinationClass = "D-III"
	_, err := NewProcessService(db).OpenProcess(f.requester.Id, process)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestOpenProcessRejectsInvertedInterstice(t *testing.T) {
	f := SetUp()
	defer TearDown()

	process := draftProcess()
	process.IntersticeStart, process.IntersticeEnd = process.IntersticeEnd, process.IntersticeStart
	_, err := NewProcessService(db).OpenProcess(f.requester.Id, process)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestOpenProcessRejectsIntersticeBeforeLastApproved(t *testing.T) {
	f := SetUp()
	defer TearDown()

	approved := draftProcess()
	approved.RequesterId = f.requester.Id
	approved.TableId = f.table.Id
	approved.Status = repository.StatusApproved
	approved.IntersticeStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	approved.IntersticeEnd = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, db.Create(approved).Error)

	// starts inside the approved interstice
	process := draftProcess()
	process.Type = repository.ProcessTypePromotion
	process.OriginLevel = "2"
	process.DestinationClass = "D-II"
	process.DestinationLevel = "1"
	_, err := NewProcessService(db).OpenProcess(f.requester.Id, process)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestOpenProcessAcceptsIntersticeAfterLastApproved(t *testing.T) {
	f := SetUp()
	defer TearDown()

	approved := draftProcess()
	approved.RequesterId = f.requester.Id
	approved.TableId = f.table.Id
	approved.Status = repository.StatusApproved
	approved.IntersticeStart = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	approved.IntersticeEnd = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, db.Create(approved).Error)

	// starts the day after the approved interstice ended
	process := draftProcess()
	process.Type = repository.ProcessTypePromotion
	process.OriginLevel = "2"
	process.DestinationClass = "D-II"
	process.DestinationLevel = "1"
	process.IntersticeStart = time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)
	process.IntersticeEnd = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	created, err := NewProcessService(db).OpenProcess(f.requester.Id, process)
	assert.Nil(t, err)
	assert.Equal(t, repository.StatusDraft, created.Status)
}

func TestOpenProcessRejectsMovementAlreadyGranted(t *testing.T) {
	f := SetUp()
	defer TearDown()

	approved := draftProcess()
	approved.RequesterId = f.requester.Id
	approved.TableId = f.table.Id
	approved.Status = repository.StatusApproved
	approved.IntersticeStart = time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	approved.IntersticeEnd = time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, db.Create(approved).Error)

	_, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestWriteScoreMultipliesQuantityByPoints(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.quantityItem.Id)
	scoreService := NewScoreService(db)
	score, err := scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(2)),
	})
	assert.Nil(t, err)
	assert.Equal(t, "120.00", score.AwardedPoints.StringFixed(2))

	nodeScores, err := scoreService.GetNodeScoresForProcess(process.Id)
	assert.Nil(t, err)
	assert.Len(t, nodeScores, 2)
}

func TestWriteScoreRequiresEvidenceForPositivePoints(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	_, err = NewScoreService(db).WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(1)),
	})
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestWriteScoreRejectsPointsAboveCeiling(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.cappedItem.Id)
	_, err = NewScoreService(db).WriteScore(f.requester.Id, process.Id, f.cappedItem.Id, &ScoreWrite{
		AwardedPoints: ptr(decimal.NewFromInt(150)),
	})
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestWriteScoreAcceptsPointsAtCeiling(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.cappedItem.Id)
	score, err := NewScoreService(db).WriteScore(f.requester.Id, process.Id, f.cappedItem.Id, &ScoreWrite{
		AwardedPoints: ptr(decimal.NewFromInt(100)),
	})
	assert.Nil(t, err)
	assert.Equal(t, "100.00", score.AwardedPoints.StringFixed(2))
}

func TestWriteScoreAllowsZeroWithoutEvidence(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	score, err := NewScoreService(db).WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.Zero),
	})
	assert.Nil(t, err)
	assert.Equal(t, "0.00", score.AwardedPoints.StringFixed(2))
}

func TestWriteScoreZeroQuantityResetsPoints(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.quantityItem.Id)
	scoreService := NewScoreService(db)
	_, err = scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(1)),
	})
	assert.Nil(t, err)
	score, err := scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.Zero),
	})
	assert.Nil(t, err)
	assert.Equal(t, "0.00", score.AwardedPoints.StringFixed(2))
}

func TestWriteScoreUpsertsSingleRow(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.quantityItem.Id)
	scoreService := NewScoreService(db)
	_, err = scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(1)),
	})
	assert.Nil(t, err)
	score, err := scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(2)),
	})
	assert.Nil(t, err)
	assert.Equal(t, "120.00", score.AwardedPoints.StringFixed(2))

	scores, err := scoreService.GetScoresForProcess(process.Id)
	assert.Nil(t, err)
	assert.Len(t, scores, 1)
}

func TestSubmitProcessRequiresMinimumTotal(t *testing.T) {
	f := SetUp()
	defer TearDown()
	processService := NewProcessService(db)
	process, err := processService.OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.quantityItem.Id)
	scoreService := NewScoreService(db)
	_, err = scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(1)),
	})
	assert.Nil(t, err)

	_, err = processService.SubmitProcess(f.requester.Id, process.Id)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))

	_, err = scoreService.WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(2)),
	})
	assert.Nil(t, err)

	result, err := processService.SubmitProcess(f.requester.Id, process.Id)
	assert.Nil(t, err)
	assert.Equal(t, repository.StatusSubmitted, result.Process.Status)
	assert.Equal(t, "120.00", result.TotalPoints.StringFixed(2))
	assert.Empty(t, result.Fallbacks)
}

func TestReviewScoreMovesProcessUnderReview(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process := submittedProcess(t, f)

	scoreService := NewScoreService(db)
	score, err := scoreService.ReviewScore(process.Id, f.quantityItem.Id, &ScoreReview{
		AwardedPoints: decimal.NewFromInt(90),
		Comment:       ptr("one course could not be verified"),
	})
	assert.Nil(t, err)
	assert.Equal(t, "90.00", score.EvaluatorAwardedPoints.StringFixed(2))

	reloaded, err := repository.NewProcessRepository(db).GetProcessById(process.Id)
	assert.Nil(t, err)
	assert.Equal(t, repository.StatusUnderReview, reloaded.Status)
}

func TestReviewScoreRejectsEditableProcess(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	_, err = NewScoreService(db).ReviewScore(process.Id, f.quantityItem.Id, &ScoreReview{
		AwardedPoints: decimal.NewFromInt(10),
	})
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestFinalizeProcessRecordsCommitteeTotal(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process := submittedProcess(t, f)

	_, err := NewScoreService(db).ReviewScore(process.Id, f.quantityItem.Id, &ScoreReview{
		AwardedPoints: decimal.NewFromInt(90),
	})
	assert.Nil(t, err)

	result, err := NewEvaluationService(db).FinalizeProcess(process.Id, repository.StatusApproved, nil)
	assert.Nil(t, err)
	assert.Equal(t, repository.StatusApproved, result.Process.Status)
	assert.Equal(t, "90.00", result.Process.FinalPoints.StringFixed(2))
	assert.Equal(t, "90.00", result.Committee.GrandTotal.StringFixed(2))
}

func TestFinalizeProcessRejectsDraft(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process, err := NewProcessService(db).OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	_, err = NewEvaluationService(db).FinalizeProcess(process.Id, repository.StatusApproved, nil)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

func TestFinalizeProcessRejectsUnknownDecision(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process := submittedProcess(t, f)

	_, err := NewEvaluationService(db).FinalizeProcess(process.Id, repository.StatusDraft, nil)
	assert.True(t, app_error.IsKind(err, app_error.KindValidation))
}

func TestDeleteProcessOnlyWhileDraftOrRejected(t *testing.T) {
	f := SetUp()
	defer TearDown()
	processService := NewProcessService(db)
	process := submittedProcess(t, f)

	err := processService.DeleteProcess(f.requester.Id, process.Id)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))

	_, err = NewEvaluationService(db).FinalizeProcess(process.Id, repository.StatusRejected, ptr("insufficient evidence"))
	assert.Nil(t, err)

	err = processService.DeleteProcess(f.requester.Id, process.Id)
	assert.Nil(t, err)

	_, err = processService.GetProcessForRequester(process.Id, f.requester.Id)
	assert.True(t, app_error.IsKind(err, app_error.KindNotFound))
}

func TestUpdateProcessRejectsSubmitted(t *testing.T) {
	f := SetUp()
	defer TearDown()
	process := submittedProcess(t, f)

	update := draftProcess()
	_, err := NewProcessService(db).UpdateProcess(f.requester.Id, process.Id, update)
	assert.True(t, app_error.IsKind(err, app_error.KindBusinessRule))
}

// submittedProcess opens a draft, scores it past the submission minimum
// and submits it.
func submittedProcess(t *testing.T, f *fixture) *repository.CareerProcess {
	processService := NewProcessService(db)
	process, err := processService.OpenProcess(f.requester.Id, draftProcess())
	assert.Nil(t, err)

	attachEvidence(t, f, process.Id, f.quantityItem.Id)
	_, err = NewScoreService(db).WriteScore(f.requester.Id, process.Id, f.quantityItem.Id, &ScoreWrite{
		Quantity: ptr(decimal.NewFromInt(2)),
	})
	assert.Nil(t, err)

	result, err := processService.SubmitProcess(f.requester.Id, process.Id)
	assert.Nil(t, err)
	return result.Process
}
