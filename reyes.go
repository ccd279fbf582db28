package reyes

import (
	"errors"
	"math"
	"strconv"
)

func newErr(reason string) error { return errors.New(reason) }

var float32PosInf = float32(math.Inf(1))

func isInf(f float32) bool { return math.IsInf(float64(f), 0) }

func itoa(i int) string { return strconv.Itoa(i) }
