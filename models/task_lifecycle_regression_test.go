package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/WRENCH-CLOUD/machnix-sub003/config"
	"github.com/WRENCH-CLOUD/machnix-sub003/models"
	"github.com/WRENCH-CLOUD/machnix-sub003/utils"
	"github.com/WRENCH-CLOUD/machnix-sub003/workflow"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// End-to-end lifecycle against real Postgres + Redis. The key regression: two
// concurrent approvals racing for the last units of stock must not both win.
func TestTaskLifecycleWithRealDatabase(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	pgName, pgPort := startPostgresContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(pgName) })

	// Wire env for config.Connect* helpers.
	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", pgPort)
	t.Setenv("DB_NAME", "machnix_test")
	t.Setenv("DB_SSLMODE", "disable")
	// Disabling the dispatcher only pauses draining; the mutations below must
	// still write outbox rows, which the claim later in the test asserts.
	t.Setenv("ESTIMATE_SYNC_DISABLED", "1")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	models.MigrateTable()

	garage, err := models.CreateGarage(ctx, &models.NewGarage{
		Name:          "Test Garage",
		Email:         "owner@test.local",
		OwnerUsername: "owner@test.local",
		OwnerName:     "Owner",
		OwnerPassword: "password123",
	})
	if err != nil {
		t.Fatalf("CreateGarage: %v", err)
	}
	ctx = utils.SetGarageIdInContext(ctx, garage.ID.String())
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	customer, err := models.CreateCustomer(ctx, &models.NewCustomer{
		Name:  "Aung Aung",
		Phone: "0912345678",
	})
	if err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	vehicle, err := models.CreateVehicle(ctx, customer.ID, &models.NewVehicle{
		Registration: "YGN-1234",
		Make:         "Toyota",
		Model:        "Probox",
	})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	jobCard, err := models.CreateJobCard(ctx, &models.NewJobCard{
		CustomerId: customer.ID,
		VehicleId:  vehicle.ID,
		Complaint:  "Brakes squeal",
	})
	if err != nil {
		t.Fatalf("CreateJobCard: %v", err)
	}
	if jobCard.JobCardNumber == "" {
		t.Fatal("job card should receive a document number")
	}

	// 5 on hand; each task needs 3, so only one of two approvals can win.
	item, err := models.CreateInventoryItem(ctx, &models.NewInventoryItem{
		Sku:         "PAD-001",
		ItemName:    "Brake pad set",
		UnitPrice:   decimal.NewFromInt(40000),
		StockOnHand: 5,
	})
	if err != nil {
		t.Fatalf("CreateInventoryItem: %v", err)
	}

	newReplacedTask := func(name string) *models.Task {
		task, err := models.CreateTask(ctx, jobCard.ID, &models.NewTask{
			TaskName:        name,
			ActionType:      models.TaskActionReplaced,
			InventoryItemId: utils.NewInt(item.ID),
			Qty:             utils.NewInt(3),
			LaborCost:       decimal.NewFromInt(10000),
			TaxRate:         decimal.NewFromFloat(0.05),
		})
		if err != nil {
			t.Fatalf("CreateTask(%s): %v", name, err)
		}
		return task
	}
	taskA := newReplacedTask("Replace front pads")
	taskB := newReplacedTask("Replace rear pads")

	// Concurrent approvals: exactly one must reserve.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, taskId := range []int{taskA.ID, taskB.ID} {
		wg.Add(1)
		go func(i int, taskId int) {
			defer wg.Done()
			_, errs[i] = workflow.TransitionTaskStatus(ctx, jobCard.ID, taskId, models.TaskStatusApproved)
		}(i, taskId)
	}
	wg.Wait()

	var wins, rejections int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var insufficient *models.InsufficientStockError
		if errors.As(err, &insufficient) {
			rejections++
			continue
		}
		t.Fatalf("unexpected approval error: %v", err)
	}
	if wins != 1 || rejections != 1 {
		t.Fatalf("expected 1 win and 1 insufficient-stock rejection, got %d/%d", wins, rejections)
	}

	after, err := models.GetInventoryItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetInventoryItem: %v", err)
	}
	if after.StockReserved != 3 || after.StockOnHand != 5 {
		t.Fatalf("expected exactly one reservation (onHand=5 reserved=3), got %d/%d", after.StockOnHand, after.StockReserved)
	}

	// Find the winner and walk it to COMPLETED.
	winner := taskA.ID
	if errs[0] != nil {
		winner = taskB.ID
	}
	if _, err := workflow.TransitionTaskStatus(ctx, jobCard.ID, winner, models.TaskStatusInProgress); err != nil {
		t.Fatalf("to IN_PROGRESS: %v", err)
	}
	result, err := workflow.TransitionTaskStatus(ctx, jobCard.ID, winner, models.TaskStatusCompleted)
	if err != nil {
		t.Fatalf("to COMPLETED: %v", err)
	}
	if result.Inventory == nil || result.Inventory.StockOnHand != 2 || result.Inventory.StockReserved != 0 {
		t.Fatalf("completion should consume the reservation, got %+v", result.Inventory)
	}

	// COMPLETED tasks are immutable history: field edits and deletes must
	// both fail with the locked error.
	_, err = models.UpdateTask(ctx, jobCard.ID, winner, &models.NewTask{
		TaskName:        "Replace front pads",
		ActionType:      models.TaskActionReplaced,
		InventoryItemId: utils.NewInt(item.ID),
		Qty:             utils.NewInt(5),
		LaborCost:       decimal.NewFromInt(10000),
		TaxRate:         decimal.NewFromFloat(0.05),
	})
	if !errors.Is(err, models.ErrTaskLocked) {
		t.Fatalf("qty edit on a COMPLETED task should be locked, got %v", err)
	}
	if _, err := models.SoftDeleteTask(ctx, jobCard.ID, winner); !errors.Is(err, models.ErrTaskLocked) {
		t.Fatalf("delete of a COMPLETED task should be locked, got %v", err)
	}

	// The loser is still DRAFT; cancel it so the job card can close.
	loser := taskA.ID + taskB.ID - winner
	if _, err := workflow.TransitionTaskStatus(ctx, jobCard.ID, loser, models.TaskStatusCancelled); err != nil {
		t.Fatalf("cancel loser: %v", err)
	}

	// Drain the estimate sync outbox inline instead of waiting on the
	// background dispatcher.
	db := config.GetDB()
	records, err := models.ClaimSyncBatch(db, "test", 100)
	if err != nil {
		t.Fatalf("ClaimSyncBatch: %v", err)
	}
	if len(records) == 0 {
		t.Fatal("expected pending sync records after task mutations")
	}
	seen := map[int]bool{}
	for _, record := range records {
		if seen[record.JobcardId] {
			continue
		}
		seen[record.JobcardId] = true
		if err := db.Transaction(func(tx *gorm.DB) error {
			return models.ApplyEstimateSync(tx, record.GarageId, record.JobcardId)
		}); err != nil {
			t.Fatalf("ApplyEstimateSync: %v", err)
		}
	}

	estimate, err := models.GetEstimateByJobCard(ctx, jobCard.ID)
	if err != nil {
		t.Fatalf("GetEstimateByJobCard: %v", err)
	}
	// Winner line: 3 * 40000 + 10000 = 130000; tax 5% = 6500. The cancelled
	// task contributes nothing.
	if estimate.SubTotal.Cmp(decimal.NewFromInt(130000)) != 0 {
		t.Fatalf("expected subTotal=130000, got %s", estimate.SubTotal)
	}
	if estimate.GrandTotal.Cmp(decimal.NewFromInt(136500)) != 0 {
		t.Fatalf("expected grandTotal=136500, got %s", estimate.GrandTotal)
	}

	invoice, err := models.GenerateInvoice(ctx, jobCard.ID)
	if err != nil {
		t.Fatalf("GenerateInvoice: %v", err)
	}
	if invoice.GrandTotal.Cmp(estimate.GrandTotal) != 0 {
		t.Fatalf("invoice total should mirror the estimate, got %s", invoice.GrandTotal)
	}
	if _, err := models.GenerateInvoice(ctx, jobCard.ID); err == nil {
		t.Fatal("second invoice for the same job card must fail")
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("machnix-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startPostgresContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("machnix-test-pg-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "POSTGRES_PASSWORD=testpw",
		"-e", "POSTGRES_DB=machnix_test",
		"-p", "127.0.0.1:0:5432",
		"postgres:16-alpine",
	)
	if err != nil {
		t.Fatalf("start postgres container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "5432/tcp")
	if err != nil {
		t.Fatalf("postgres docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "pg_isready", "-U", "postgres")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("postgres did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
