// Package level implements Level and the pure functions over sequences of
// Levels that drive DNS's adaptive level construction: recalculating
// estimated log prior mass (log_X) and renormalising visit counters.
package level

import (
	"bufio"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/modsim/dnest4/pkg/likelihood"
)

// Level is a likelihood threshold plus accumulated MCMC counters.
// Counters are mutated only by thread 0 during the merge step; Level
// itself has no internal locking.
type Level struct {
	Threshold likelihood.Type
	LogX      float64
	Accepts   uint64
	Tries     uint64
	Visits    uint64
	Exceeds   uint64
}

// NewBase constructs levels[0]: threshold at -inf (everything is "in"),
// log_X = 0.
func NewBase() Level {
	return Level{
		Threshold: likelihood.Type{Value: math.Inf(-1), Tiebreaker: 0},
		LogX:      0,
	}
}

// New constructs a freshly created level with the given threshold and
// zeroed counters.
func New(threshold likelihood.Type) Level {
	return Level{Threshold: threshold}
}

// Write serializes one row of the levels_file format: "log_X
// log_likelihood tiebreaker accepts tries exceeds visits".
func (l Level) Write(w *bufio.Writer) error {
	_, err := fmt.Fprintf(w, "%s %s %s %d %d %d %d\n",
		hexFloat(l.LogX), hexFloat(l.Threshold.Value), hexFloat(l.Threshold.Tiebreaker),
		l.Accepts, l.Tries, l.Exceeds, l.Visits)
	return err
}

// Read restores one row previously produced by Write.
func (l *Level) Read(r *bufio.Reader) error {
	line, err := r.ReadString('\n')
	if err != nil {
		return fmt.Errorf("level: read line: %w", err)
	}
	var logXs, vs, ts string
	n, err := fmt.Sscanf(line, "%s %s %s %d %d %d %d",
		&logXs, &vs, &ts, &l.Accepts, &l.Tries, &l.Exceeds, &l.Visits)
	if err != nil || n != 7 {
		return fmt.Errorf("level: parse row: %w", err)
	}
	logX, err := parseHexFloat(logXs)
	if err != nil {
		return fmt.Errorf("level: parse log_X: %w", err)
	}
	v, err := parseHexFloat(vs)
	if err != nil {
		return fmt.Errorf("level: parse value: %w", err)
	}
	tb, err := parseHexFloat(ts)
	if err != nil {
		return fmt.Errorf("level: parse tiebreaker: %w", err)
	}
	l.LogX = logX
	l.Threshold = likelihood.Type{Value: v, Tiebreaker: tb}
	return nil
}

// WriteHeader writes the levels_file header line.
func WriteHeader(w *bufio.Writer) error {
	_, err := w.WriteString("# log_X, log_likelihood, tiebreaker, accepts, tries, exceeds, visits\n")
	return err
}

// EnoughLevels reports whether the level set has reached its target size.
//
// If maxNumLevels > 0, the target is simply len(levels) >= maxNumLevels.
// Otherwise (auto mode), it examines the last n inter-level gaps (n =
// floor(30*sqrt(0.02*len(levels))), requiring n >= 30) and declares the
// level set complete once their mean gap is < 0.75 and their max gap is
// < 1.0.
func EnoughLevels(levels []Level, maxNumLevels int) bool {
	if maxNumLevels > 0 {
		return len(levels) >= maxNumLevels
	}

	n := int(math.Floor(30.0 * math.Sqrt(0.02*float64(len(levels)))))
	if n < 30 {
		return false
	}
	if n > len(levels)-1 {
		n = len(levels) - 1
	}

	var sum, max float64
	for i := len(levels) - n; i < len(levels); i++ {
		gap := levels[i].Threshold.Value - levels[i-1].Threshold.Value
		sum += gap
		if gap > max {
			max = gap
		}
	}
	mean := sum / float64(n)
	return mean < 0.75 && max < 1.0
}

// RecalculateLogX refines log_X for every level from the empirical
// compression estimator:
//
//	log_X[k+1] = log_X[k] + log((exceeds[k] + (1/compression)*R) / (visits[k] + R))
//
// with log_X[0] = 0. R is the regularisation passed in by the caller
// (newLevelInterval * sqrt(lambda)).
func RecalculateLogX(levels []Level, compression, r float64) {
	if len(levels) == 0 {
		return
	}
	levels[0].LogX = 0
	for k := 0; k < len(levels)-1; k++ {
		num := float64(levels[k].Exceeds) + r/compression
		den := float64(levels[k].Visits) + r
		levels[k+1].LogX = levels[k].LogX + math.Log(num/den)
	}
}

// RenormaliseVisits scales each level's (visits, exceeds) counters so the
// most-populated level's visits equals r, applied once when level
// construction completes so later log_X refinement does not average away
// recent information against huge historical counts.
func RenormaliseVisits(levels []Level, r uint64) {
	if len(levels) == 0 {
		return
	}
	var maxVisits uint64
	for _, l := range levels {
		if l.Visits > maxVisits {
			maxVisits = l.Visits
		}
	}
	if maxVisits == 0 {
		return
	}
	scale := float64(r) / float64(maxVisits)
	for i := range levels {
		levels[i].Visits = uint64(math.Round(float64(levels[i].Visits) * scale))
		levels[i].Exceeds = uint64(math.Round(float64(levels[i].Exceeds) * scale))
	}
}

// ThresholdFromAbove picks the threshold for a newly created level: sort
// above (in place, ascending) and take the (1 - 1/compression) quantile.
// Returns the chosen threshold and the index it was found at (inclusive;
// callers should erase above[0:index+1] from the now-sorted buffer
// afterwards).
func ThresholdFromAbove(above []likelihood.Type, compression float64) (likelihood.Type, int) {
	sort.Slice(above, func(i, j int) bool { return likelihood.Less(above[i], above[j]) })
	index := int(math.Floor((1.0 - 1.0/compression) * float64(len(above))))
	if index >= len(above) {
		index = len(above) - 1
	}
	if index < 0 {
		index = 0
	}
	return above[index], index
}

func hexFloat(v float64) string {
	return strconv.FormatFloat(v, 'x', -1, 64)
}

func parseHexFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
