package reading

// CalibrationPoint holds the two reference readings that anchor a channel's
// percentage scale. Either endpoint may be missing until the channel has
// been calibrated; the sign of FullRaw-EmptyRaw is not fixed, since some
// transducers read lower as the level rises.
type CalibrationPoint struct {
	EmptyRaw int
	FullRaw  int
	HasEmpty bool
	HasFull  bool
}

// Complete returns whether both endpoints have been calibrated
func (p CalibrationPoint) Complete() bool {
	return p.HasEmpty && p.HasFull
}
