package recognition

import "errors"

var errNoProvider = errors.New("no provider configured")
