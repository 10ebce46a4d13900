package tools

import (
	"errors"
)

// errNoResponse is returned when a client reports success without a body
var errNoResponse = errors.New("empty response from AWS")
