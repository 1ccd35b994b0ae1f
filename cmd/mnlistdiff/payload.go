package main

import (
	"encoding/hex"
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// readPayload reads a raw payload from path. When isHex is set, the file
// holds the payload hex encoded, possibly spread over several lines.
func readPayload(path string, isHex bool) ([]byte, error) {
	contents, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	if !isHex {
		return contents, nil
	}
	payload, err := hex.DecodeString(strings.Join(strings.Fields(string(contents)), ""))
	if err != nil {
		return nil, errors.Wrapf(err, "error decoding the hex in %s", path)
	}
	return payload, nil
}
