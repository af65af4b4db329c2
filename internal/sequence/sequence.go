// Package sequence loads the ordered trial plan (cue_type, target_accuracy,
// n_iti) that drives a run.
package sequence

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// CueKind is one of {gain, loss, neutral}.
type CueKind string

const (
	Gain    CueKind = "gain"
	Loss    CueKind = "loss"
	Neutral CueKind = "neutral"
)

// RewardDollars returns the signed reward delta associated with cue k.
func (k CueKind) RewardDollars() int {
	switch k {
	case Gain:
		return 5
	case Loss:
		return -5
	default:
		return 0
	}
}

// Label returns the printed cue label ("+$5"/"-$5"/"$0").
func (k CueKind) Label() string {
	switch k {
	case Gain:
		return "+$5"
	case Loss:
		return "-$5"
	default:
		return "$0"
	}
}

// ErrMissingSequence is returned when the sequence file does not exist or
// lacks the required columns (§7 MissingSequence).
var ErrMissingSequence = errors.New("sequence: missing or invalid sequence file")

// Row is one immutable trial-plan row.
type Row struct {
	CueKind        CueKind
	TargetAccuracy int // 80, 50, or 20
	NITITRs        int // positive count of ITI TRs for this trial
}

// Load reads path as a UTF-8 CSV with header columns
// cue_type,target_accuracy,n_iti and returns the rows in presentation
// order.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrMissingSequence, path, err)
		}
		return nil, fmt.Errorf("sequence: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingSequence, path, err)
	}

	col := map[string]int{}
	for i, name := range header {
		col[name] = i
	}
	for _, required := range []string{"cue_type", "target_accuracy", "n_iti"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", ErrMissingSequence, path, required)
		}
	}

	var rows []Row
	for lineNo := 2; ; lineNo++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sequence: %s:%d: %w", path, lineNo, err)
		}

		cueType := CueKind(rec[col["cue_type"]])
		if cueType != Gain && cueType != Loss && cueType != Neutral {
			return nil, fmt.Errorf("%w: %s:%d: invalid cue_type %q", ErrMissingSequence, path, lineNo, rec[col["cue_type"]])
		}

		accuracy, err := strconv.Atoi(rec[col["target_accuracy"]])
		if err != nil || (accuracy != 80 && accuracy != 50 && accuracy != 20) {
			return nil, fmt.Errorf("%w: %s:%d: invalid target_accuracy %q", ErrMissingSequence, path, lineNo, rec[col["target_accuracy"]])
		}

		nITI, err := strconv.Atoi(rec[col["n_iti"]])
		if err != nil || nITI <= 0 {
			return nil, fmt.Errorf("%w: %s:%d: invalid n_iti %q", ErrMissingSequence, path, lineNo, rec[col["n_iti"]])
		}

		rows = append(rows, Row{CueKind: cueType, TargetAccuracy: accuracy, NITITRs: nITI})
	}

	return rows, nil
}

// CountsByAccuracy tallies how many rows fall at each target accuracy
// level, used to size the staircase pool.
func CountsByAccuracy(rows []Row) map[int]int {
	counts := make(map[int]int, 3)
	for _, row := range rows {
		counts[row.TargetAccuracy]++
	}
	return counts
}
