package lineproto

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sweeks/multiviewer/internal/mverr"
)

func pipePair(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	c := New(clientSide, 200*time.Millisecond)
	t.Cleanup(func() {
		c.Close()
		serverSide.Close()
	})
	return c, serverSide
}

func TestWriteLineAppendsCRTerminator(t *testing.T) {
	c, server := pipePair(t)

	go func() {
		c.WriteLine("r power!")
	}()

	r := bufio.NewReader(server)
	got, err := r.ReadString('\r')
	if err != nil {
		t.Fatalf("ReadString: %v", err)
	}
	if got != "r power!\r" {
		t.Fatalf("got %q, want %q", got, "r power!\r")
	}
}

func TestReadLineStripsTerminator(t *testing.T) {
	c, server := pipePair(t)

	go func() {
		server.Write([]byte("power on\n"))
	}()

	got, err := c.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if got != "power on" {
		t.Fatalf("got %q, want %q", got, "power on")
	}
}

func TestReadLineTimesOut(t *testing.T) {
	c, _ := pipePair(t)

	_, err := c.ReadLine()
	if _, ok := err.(*mverr.TimeoutError); !ok {
		t.Fatalf("expected *mverr.TimeoutError, got %v (%T)", err, err)
	}
}

func TestReadUntilLineSkipsCruftAndTolerateTimeouts(t *testing.T) {
	c, server := pipePair(t)

	done := make(chan error, 1)
	go func() {
		done <- c.ReadUntilLine("Initialization Finished!")
	}()

	server.Write([]byte("booting...\n"))
	time.Sleep(250 * time.Millisecond) // provoke at least one internal timeout
	server.Write([]byte("still booting...\n"))
	server.Write([]byte("Initialization Finished!\n"))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ReadUntilLine: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ReadUntilLine did not return")
	}
}

func TestSendCommandWritesThenReads(t *testing.T) {
	c, server := pipePair(t)

	go func() {
		r := bufio.NewReader(server)
		cmd, _ := r.ReadString('\r')
		if cmd != "r power!\r" {
			t.Errorf("server saw %q", cmd)
		}
		server.Write([]byte("power off\n"))
	}()

	resp, err := c.SendCommand("r power!")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if resp != "power off" {
		t.Fatalf("got %q, want %q", resp, "power off")
	}
}
