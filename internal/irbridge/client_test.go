package irbridge

import (
	"bufio"
	"net"
	"testing"
	"time"
)

func fakeItach(t *testing.T) (addr string, lastCmd chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	lastCmd = make(chan string, 1)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				r := bufio.NewReader(conn)
				cmd, err := r.ReadString('\r')
				if err != nil {
					return
				}
				lastCmd <- cmd
				conn.Write([]byte("completeir\r"))
			}()
		}
	}()
	return ln.Addr().String(), lastCmd
}

func TestVolumeUpSendsLearnedPayloadAndWaitsForAck(t *testing.T) {
	addr, lastCmd := fakeItach(t)
	c := New(addr, time.Second, time.Millisecond)

	if err := c.VolumeUp(); err != nil {
		t.Fatalf("VolumeUp: %v", err)
	}

	select {
	case got := <-lastCmd:
		if got != irVolumeUp {
			t.Fatalf("sent %d bytes, want the learned volume-up payload", len(got))
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw a command")
	}
}

func TestMuteUsesDedicatedPayload(t *testing.T) {
	addr, lastCmd := fakeItach(t)
	c := New(addr, time.Second, time.Millisecond)

	if err := c.Mute(); err != nil {
		t.Fatalf("Mute: %v", err)
	}
	got := <-lastCmd
	if got != irMute {
		t.Fatal("mute sent the wrong payload")
	}
}

func TestCommandTimesOutWhenDeviceNeverAcks(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		time.Sleep(2 * time.Second) // never responds within the client's timeout
	}()

	c := New(ln.Addr().String(), 100*time.Millisecond, time.Millisecond)
	if err := c.VolumeDown(); err == nil {
		t.Fatal("expected a timeout error")
	}
}
