package yamlcreds

import "errors"

// ErrInvalidYAML is returned by ExtractNested when the input is not valid YAML.
var ErrInvalidYAML = errors.New("invalid YAML document")
