package sampler

import "errors"

var (
	// ErrSavesOverflow is returned by IncreaseMaxNumSaves when the
	// requested increase would overflow uint64. No state is mutated.
	ErrSavesOverflow = errors.New("sampler: increasing max_num_saves would overflow")

	// ErrCheckpointRead is returned when a checkpoint fails to open or
	// parse during resume. This is fatal per the configured
	// propagation policy: a missing or unreadable checkpoint aborts
	// initialization rather than silently starting fresh.
	ErrCheckpointRead = errors.New("sampler: checkpoint read failed")
)
