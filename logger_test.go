package kaspcore

import "testing"

func TestNopLoggerDiscardsEverything(t *testing.T) {
	l := NewNopLogger()
	l.Debugf("x")
	l.Infof("x")
	l.Warnf("x")
	l.Errorf("x")
	if l.DebugEnabled() {
		t.Fatal("nop logger must report debug disabled")
	}
}

func TestDefaultLoggerDebugGating(t *testing.T) {
	l := NewDefaultLogger("test", false)
	if l.DebugEnabled() {
		t.Fatal("expected debug disabled by default")
	}
	l.SetDebug(true)
	if !l.DebugEnabled() {
		t.Fatal("expected debug enabled after SetDebug(true)")
	}
}
