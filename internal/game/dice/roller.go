package dice

import "go.uber.org/zap"

// Roller rolls expressions from a Source and logs each roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll rolls e.
//
// Precondition: e.Count >= 1 and e.Sides >= 1.
// Postcondition: every face is in [1, e.Sides].
func (r *Roller) Roll(e Expr) Outcome {
	o := Outcome{Expr: e, Faces: make([]int, e.Count)}
	for i := range o.Faces {
		o.Faces[i] = r.src.Intn(e.Sides) + 1
	}
	r.logger.Debug("dice roll", zap.Stringer("roll", o), zap.Int("total", o.Total()))
	return o
}

// RollString parses notation and rolls it.
func (r *Roller) RollString(notation string) (Outcome, error) {
	e, err := Parse(notation)
	if err != nil {
		return Outcome{}, err
	}
	return r.Roll(e), nil
}

// D20 rolls a single twenty-sided die.
func (r *Roller) D20() int {
	return r.Roll(D20).Total()
}

// Intn returns an unlogged uniform value in [0, n) for non-dice choices such
// as behavior draws and exit selection.
//
// Precondition: n > 0.
func (r *Roller) Intn(n int) int {
	return r.src.Intn(n)
}
