package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeEndpointTXT creates TXT records for endpoint discovery.
func EncodeEndpointTXT(e *Endpoint) TXTRecordMap {
	txt := make(TXTRecordMap)

	// Required fields
	txt[TXTKeyID] = e.ID
	txt[TXTKeyVersion] = strconv.Itoa(e.Version)

	// Optional fields
	if e.Scheme != "" {
		txt[TXTKeyScheme] = e.Scheme
	}

	return txt
}

// DecodeEndpointTXT parses TXT records from endpoint discovery.
func DecodeEndpointTXT(txt TXTRecordMap) (*Endpoint, error) {
	e := &Endpoint{}

	// Parse ID (required)
	id, ok := txt[TXTKeyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}
	e.ID = id

	// Parse version (required)
	vStr, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	v, err := strconv.Atoi(vStr)
	if err != nil || v < 1 {
		return nil, ErrInvalidVersion
	}
	e.Version = v

	// Parse scheme (optional, defaults to tcp)
	e.Scheme = txt[TXTKeyScheme]
	if e.Scheme == "" {
		e.Scheme = "tcp"
	}

	return e, nil
}

// TXTRecordsToStrings converts a TXTRecordMap into "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			continue
		}
		txt[parts[0]] = parts[1]
	}
	return txt
}
