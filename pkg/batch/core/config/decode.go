package config

import (
	"github.com/mitchellh/mapstructure"
)

// DecodeAdapterConfig decodes a raw adapter map (an entry of Datasources or Storage)
// into out, matching keys against yaml tags. String values are converted to the
// target field type so that entries overridden from the environment decode cleanly.
func DecodeAdapterConfig(raw interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(raw)
}
