package service

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits.  They mirror the column sizes of the relational schema and
// are enforced for every backend, so a value one store accepts every store
// accepts.
const (
	MaxEmailLen        = 120
	MaxCompanyLen      = 120
	MaxPasswordBytes   = 72 // bcrypt ignores or rejects anything longer
	MaxDeviceIDLen     = 50
	MaxPairingCodeLen  = 10
	MaxPlayerNameLen   = 120
	MaxLocationLen     = 120
	MaxContentURLBytes = 65535 // TEXT
)

// checkLen fails with ErrValidation when value has more than max characters.
func checkLen(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%w: %s must be at most %d characters", ErrValidation, field, max)
	}
	return nil
}

// checkDeviceID rejects ids that cannot be a single MQTT topic level.
func checkDeviceID(id string) error {
	if err := checkLen("device_id", id, MaxDeviceIDLen); err != nil {
		return err
	}
	if strings.ContainsAny(id, "/+#") || strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: device_id must not contain '/', '+', '#' or control characters", ErrValidation)
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
