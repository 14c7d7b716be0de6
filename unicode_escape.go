// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// decodeUTF16StringLiteral decodes \uXXXX UTF-16 code-unit escapes the
// lexer leaves undecoded in string literal text (spec §3). Consecutive
// escapes are batched into one UTF-16 run before decoding so a
// surrogate pair (two escapes together encoding one codepoint outside
// the BMP) resolves correctly instead of each half producing a
// replacement character. Grounded on helper.go's DecodeUTF16String,
// generalized from little-endian bytes read off a PE section to
// big-endian hex digits written directly in source text.
func decodeUTF16StringLiteral(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()

	var out strings.Builder
	var units []byte
	flush := func() {
		if len(units) == 0 {
			return
		}
		if decoded, err := decoder.Bytes(units); err == nil {
			out.Write(decoded)
		}
		units = nil
	}

	for i := 0; i < len(s); {
		if s[i] == '\\' && i+5 < len(s) && s[i+1] == 'u' {
			if v, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
				units = append(units, byte(v>>8), byte(v))
				i += 6
				continue
			}
		}
		flush()
		out.WriteByte(s[i])
		i++
	}
	flush()
	return out.String()
}
