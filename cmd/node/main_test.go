package main

import "testing"

func TestRunNodeRejectsPortsOutOfRange(t *testing.T) {
	cmd := rootCmd
	err := runNode(cmd, []string{"80", "13101"})
	if err == nil {
		t.Fatal("expected error for management port below the allowed range")
	}
}

func TestRunNodeRejectsMatchingPorts(t *testing.T) {
	cmd := rootCmd
	err := runNode(cmd, []string{"13101", "13101"})
	if err == nil {
		t.Fatal("expected error when management and peer ports match")
	}
}

func TestRunNodeRejectsNonNumericPort(t *testing.T) {
	cmd := rootCmd
	err := runNode(cmd, []string{"notaport", "13101"})
	if err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
