// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package duration

import (
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

var units = []struct {
	suffix string
	size   time.Duration
}{
	{"y", 365 * day},
	{"mo", 30 * day},
	{"w", 7 * day},
	{"d", day},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
	{"us", time.Microsecond},
	{"ns", time.Nanosecond},
}

// Format renders d as space separated units, largest first: 90s is "1m 30s".
// Months and years are approximated as 30 and 365 days. Non-positive
// durations render as "0s".
func Format(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	parts := make([]string, 0, 4)
	for _, unit := range units {
		if d < unit.size {
			continue
		}
		count := d / unit.size
		parts = append(parts, strconv.FormatInt(int64(count), 10)+unit.suffix)
		d -= count * unit.size
	}
	return strings.Join(parts, " ")
}
