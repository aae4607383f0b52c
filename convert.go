package appconf

import (
	"time"

	"github.com/spf13/cast"
)

// Stock converters for common binding types, backed by spf13/cast. Any
// function with the Converter signature works; these cover the usual
// cases:
//
//	port = appconf.Bind[int]("server.port").Convert(appconf.ToInt)
var (
	ToString   Converter[string]        = cast.ToStringE
	ToInt      Converter[int]           = cast.ToIntE
	ToInt64    Converter[int64]         = cast.ToInt64E
	ToBool     Converter[bool]          = cast.ToBoolE
	ToFloat64  Converter[float64]       = cast.ToFloat64E
	ToDuration Converter[time.Duration] = cast.ToDurationE
)
