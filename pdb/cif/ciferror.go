// An error implementation that saves the line number and the line we
// were trying to read. The key is to call fill() on the scanner as
// soon as something goes wrong and to collect the error at the end.
package cif

import (
	"strconv"
)

const maxMsgLen = 70

type readError struct {
	n      int    // line number
	inline string // the line that provoked the error
	desc   string // description of the error
}

// fill stores the problem we have seen, for printing out when it is
// convenient. If there was already an error, the new description is
// stacked on top so nothing gets lost.
func (s *cmmtScanner) fill(desc string, saveLine bool) {
	const multErrStr = "\nNew error, but there was already an error from line "
	if !s.Ok {
		ln := strconv.Itoa(s.lErr.n)
		desc = s.lErr.desc + multErrStr + ln + ":\n" + desc
	}
	s.Ok = false
	if saveLine {
		s.lErr.n = s.n
	}
	s.lErr.inline = string(s.cbytes())
	s.lErr.desc = desc
}

func firstPart(s string) string {
	if len(s) > maxMsgLen {
		return s[:maxMsgLen]
	}
	return s
}

// Error includes the number of the last line read and whatever
// description fill() left for us.
func (e readError) Error() string {
	var errmsg string
	if e.n != 0 {
		errmsg = "Line " + strconv.Itoa(e.n) + ": "
	}
	errmsg += e.desc
	if e.n != 0 && e.inline != "" {
		errmsg += "\nLine starting with\n" + firstPart(e.inline)
	}
	return errmsg
}
