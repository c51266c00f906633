package journal

import (
	"os"
	"testing"

	"github.com/ShayCichocki/swarm/pkg/models"
)

func TestRecoverInterrupted(t *testing.T) {
	db := setupTestDB(t)

	// Above any kernel pid_max, so never alive.
	const deadPID = 1 << 30

	runs := []*Run{
		{ID: "alive", GraphID: "g"},
		{ID: "dead", GraphID: "g", PID: deadPID},
		{ID: "done", GraphID: "g", PID: deadPID},
	}
	for _, r := range runs {
		if err := db.StartRun(r); err != nil {
			t.Fatalf("StartRun(%s) failed: %v", r.ID, err)
		}
	}
	if runs[0].PID != os.Getpid() {
		t.Errorf("expected StartRun to record the current pid, got %d", runs[0].PID)
	}
	if err := db.FinishRun("done", "completed", models.Progress{Total: 1, Completed: 1}, nil); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	recovered, err := db.RecoverInterrupted()
	if err != nil {
		t.Fatalf("RecoverInterrupted failed: %v", err)
	}
	if len(recovered) != 1 || recovered[0] != "dead" {
		t.Fatalf("expected only the dead run to be recovered, got %v", recovered)
	}

	dead, err := db.GetRun("dead")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if dead.Status != RunStatusInterrupted || dead.FinishedAt == nil || dead.Error == "" {
		t.Errorf("unexpected recovered run %+v", dead)
	}

	for id, want := range map[string]string{"alive": RunStatusRunning, "done": "completed"} {
		r, err := db.GetRun(id)
		if err != nil {
			t.Fatalf("GetRun(%s) failed: %v", id, err)
		}
		if r.Status != want {
			t.Errorf("run %s: status %q, want %q", id, r.Status, want)
		}
	}

	again, err := db.RecoverInterrupted()
	if err != nil {
		t.Fatalf("second RecoverInterrupted failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("expected nothing left to recover, got %v", again)
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !isProcessAlive(os.Getpid()) {
		t.Error("expected the current process to be alive")
	}
	if isProcessAlive(0) || isProcessAlive(-1) {
		t.Error("expected non-positive pids to be reported dead")
	}
}
