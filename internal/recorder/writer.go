package recorder

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

var behavioralHeader = []string{
	"trial_n", "trial_type", "cue_kind", "reward_dollars", "difficulty",
	"accuracy_target", "staircase_name", "staircase_trial_n", "staircase_step_sd",
	"intensity_s", "time_onset_s", "jitter_ms", "target_dur_ms", "early_press",
	"hit", "rt_ms", "reward_outcome", "total_earned", "time_trial_end_s",
	"trial_dur_ms", "time_sched_end_s", "timing_drift_ms", "total_trs",
	"subject_id", "run_n", "pulse_ct_at_onset",
}

var scanLogHeader = []string{
	"trial_n", "phase", "tr_n", "phase_global_time", "phase_trial_time", "pulse_ct",
}

func boolToInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// BehavioralWriter appends TrialRecords to the behavioral CSV, flushing
// the file handle after every row (§4.F: "Failure of a write is fatal").
type BehavioralWriter struct {
	f *os.File
	w *csv.Writer
}

// NewBehavioralWriter creates path, writes the header row, and returns a
// ready writer.
func NewBehavioralWriter(path string) (*BehavioralWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(behavioralHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: flush header: %w", err)
	}
	return &BehavioralWriter{f: f, w: w}, nil
}

// Append writes rec as one row and flushes immediately.
func (bw *BehavioralWriter) Append(rec TrialRecord) error {
	rt := ""
	if rec.HasRT {
		rt = strconv.FormatFloat(rec.RTMs, 'f', 2, 64)
	}
	row := []string{
		strconv.Itoa(rec.TrialN),
		strconv.Itoa(rec.TrialType),
		rec.CueKind,
		strconv.Itoa(rec.RewardDollars),
		rec.Difficulty,
		strconv.Itoa(rec.AccuracyTarget),
		rec.StaircaseName,
		strconv.Itoa(rec.StaircaseTrialN),
		strconv.FormatFloat(rec.StaircaseStepSD, 'f', 6, 64),
		strconv.FormatFloat(rec.IntensityS, 'f', 6, 64),
		strconv.FormatFloat(rec.TimeOnsetS, 'f', 6, 64),
		strconv.Itoa(rec.JitterMs),
		strconv.Itoa(rec.TargetDurMs),
		boolToInt(rec.EarlyPress),
		boolToInt(rec.Hit),
		rt,
		rec.RewardOutcome,
		strconv.Itoa(rec.TotalEarned),
		strconv.FormatFloat(rec.TimeTrialEndS, 'f', 6, 64),
		strconv.Itoa(rec.TrialDurMs),
		strconv.FormatFloat(rec.TimeSchedEndS, 'f', 6, 64),
		strconv.FormatFloat(rec.TimingDriftMs, 'f', 2, 64),
		strconv.Itoa(rec.TotalTRs),
		rec.SubjectID,
		rec.RunN,
		strconv.FormatUint(rec.PulseCtAtOnset, 10),
	}
	if err := bw.w.Write(row); err != nil {
		return fmt.Errorf("recorder: write trial row: %w", err)
	}
	bw.w.Flush()
	return bw.w.Error()
}

// Close flushes and closes the underlying file.
func (bw *BehavioralWriter) Close() error {
	bw.w.Flush()
	if err := bw.w.Error(); err != nil {
		bw.f.Close()
		return err
	}
	return bw.f.Close()
}

// ScanLogWriter appends PhaseRecords to the scan-log CSV, flushing after
// every row.
type ScanLogWriter struct {
	f *os.File
	w *csv.Writer
}

// NewScanLogWriter creates path, writes the header row, and returns a
// ready writer.
func NewScanLogWriter(path string) (*ScanLogWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("recorder: create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(scanLogHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: write header: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("recorder: flush header: %w", err)
	}
	return &ScanLogWriter{f: f, w: w}, nil
}

// Append writes rec as one row and flushes immediately.
func (sw *ScanLogWriter) Append(rec PhaseRecord) error {
	row := []string{
		strconv.Itoa(rec.TrialN),
		rec.Phase,
		strconv.Itoa(rec.TRN),
		strconv.FormatFloat(rec.PhaseGlobalTime, 'f', 6, 64),
		strconv.FormatFloat(rec.PhaseTrialTime, 'f', 6, 64),
		strconv.FormatUint(rec.PulseCt, 10),
	}
	if err := sw.w.Write(row); err != nil {
		return fmt.Errorf("recorder: write phase row: %w", err)
	}
	sw.w.Flush()
	return sw.w.Error()
}

// Close flushes and closes the underlying file.
func (sw *ScanLogWriter) Close() error {
	sw.w.Flush()
	if err := sw.w.Error(); err != nil {
		sw.f.Close()
		return err
	}
	return sw.f.Close()
}
