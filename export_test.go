package nimbus

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
)

type failingCloser struct {
	err    error
	closed bool
}

func (c *failingCloser) Close() error {
	c.closed = true
	return c.err
}

func TestCloseCSV(t *testing.T) {
	var out bytes.Buffer
	buf := bufio.NewWriter(&out)
	w := csv.NewWriter(buf)
	w.Write([]string{"time", "x"})
	errClose := errors.New("disk full")
	c := &failingCloser{err: errClose}
	if err := closeCSV(w, buf, c); err != errClose {
		t.Fatalf("close error lost: %v", err)
	}
	if !c.closed || out.String() != "time,x\n" {
		t.Fatalf("closed %v, wrote %q", c.closed, out.String())
	}
	c = &failingCloser{}
	if err := closeCSV(csv.NewWriter(buf), buf, c); err != nil || !c.closed {
		t.Fatalf("closed %v: %v", c.closed, err)
	}
}
