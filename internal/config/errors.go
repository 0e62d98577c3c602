package config

import "errors"

// ErrConfiguration marks a required credential or connection setting that is
// absent or invalid. It is fatal only for the component that needs the value.
var ErrConfiguration = errors.New("configuration error")
