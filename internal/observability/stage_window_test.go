package observability

import "testing"

func TestStageWindowSnapshotOrdersStagesAndComputesQuantiles(t *testing.T) {
	w := newStageWindow(8)
	for _, ms := range []float64{100, 200, 300, 400} {
		w.Observe(StageComplete, ms)
	}
	w.Observe(StageTranscribe, 50)

	snap := w.Snapshot()
	if len(snap.Stages) != 2 {
		t.Fatalf("Snapshot() stages = %d, want 2", len(snap.Stages))
	}
	if snap.Stages[0].Stage != StageComplete {
		t.Fatalf("first stage = %q, want %q (sorted)", snap.Stages[0].Stage, StageComplete)
	}
	complete := snap.Stages[0]
	if complete.Samples != 4 {
		t.Fatalf("samples = %d, want 4", complete.Samples)
	}
	if complete.LastMS != 400 {
		t.Fatalf("last = %v, want 400", complete.LastMS)
	}
	if complete.AvgMS != 250 {
		t.Fatalf("avg = %v, want 250", complete.AvgMS)
	}
	if complete.P50MS != 250 {
		t.Fatalf("p50 = %v, want 250", complete.P50MS)
	}
}

func TestStageWindowWrapsAroundCapacity(t *testing.T) {
	w := newStageWindow(4)
	for i := 0; i < 10; i++ {
		w.Observe(StageRetrieve, float64(i))
	}

	snap := w.Snapshot()
	if len(snap.Stages) != 1 {
		t.Fatalf("Snapshot() stages = %d, want 1", len(snap.Stages))
	}
	if snap.Stages[0].Samples != 4 {
		t.Fatalf("samples = %d, want window size 4", snap.Stages[0].Samples)
	}
	if snap.Stages[0].LastMS != 9 {
		t.Fatalf("last = %v, want 9", snap.Stages[0].LastMS)
	}
}

func TestStageWindowIgnoresInvalidSamples(t *testing.T) {
	w := newStageWindow(4)
	w.Observe("", 10)
	w.Observe(StageSynthesize, -1)

	if got := len(w.Snapshot().Stages); got != 0 {
		t.Fatalf("Snapshot() stages = %d, want 0", got)
	}
}
