package main

import "testing"

func TestSeedClientHasNoTimeouts(t *testing.T) {
	c := newSeedClient()
	if c.ReadTimeout != 0 || c.WriteTimeout != 0 {
		t.Fatalf("timeouts = %v/%v, want none", c.ReadTimeout, c.WriteTimeout)
	}
}
