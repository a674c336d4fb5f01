package utils

import (
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// Business identifier formats:
//   VISIT-<YYYY>-<4-digit sequence>   regular visits
//   EMG-<3-letter city code>-<8-digit code>  emergency tickets
//   CNT-<YYYY>-<4-digit sequence>     contracts

// FormatVisitID builds a regular visit identifier from its year and
// per-year sequence number.
func FormatVisitID(year, sequence int) string {
	return fmt.Sprintf("VISIT-%04d-%04d", year, sequence)
}

// FormatContractID builds a contract identifier from its year and
// per-year sequence number.
func FormatContractID(year, sequence int) string {
	return fmt.Sprintf("CNT-%04d-%04d", year, sequence)
}

// NewEmergencyTicketNumber generates a ticket number for an emergency
// visit at the given city. The result always matches
// EMG-[A-Z]{3}-\d{8}.
func NewEmergencyTicketNumber(city string) string {
	return fmt.Sprintf("EMG-%s-%08d", CityCode(city), rand.Intn(100000000))
}

// CityCode derives the fixed 3-letter code from a city name: the first
// three letters, uppercased, padded with X when the name is shorter.
func CityCode(city string) string {
	var b strings.Builder
	for _, r := range city {
		if unicode.IsLetter(r) && r < 128 {
			b.WriteRune(unicode.ToUpper(r))
			if b.Len() == 3 {
				break
			}
		}
	}
	for b.Len() < 3 {
		b.WriteByte('X')
	}
	return b.String()
}
