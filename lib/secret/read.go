// Copyright 2026 The Chained Social Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadFile loads a secret from path, or the first line of stdin when
// path is "-". Surrounding whitespace is trimmed and an empty result
// is an error.
func ReadFile(path string) (*Buffer, error) {
	if path == "-" {
		return ReadLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return fromTrimmed(data)
}

// ReadLine loads a secret from the first line of r.
func ReadLine(r io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading input: %w", err)
		}
		return nil, fmt.Errorf("secret: input is empty")
	}
	return fromTrimmed(scanner.Bytes())
}

func fromTrimmed(data []byte) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("secret: value is empty")
	}
	return FromBytes(trimmed)
}
