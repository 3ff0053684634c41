package peer

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"ChordDHT/internal/ring"
)

// serve runs a minimal echo server implementing a single canned reply for
// every connection, mimicking node.handleConn without pulling in the node
// package.
func serve(t *testing.T, handle func(line string) string) (Address, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				close(done)
				return
			}
			go func() {
				defer conn.Close()
				line, err := bufio.NewReader(conn).ReadString('\n')
				if err != nil {
					return
				}
				line = strings.TrimRight(line, "\r\n")
				reply := handle(line)
				if reply != "" {
					conn.Write([]byte(reply + "\r\n"))
				} else {
					conn.Write([]byte("\r\n"))
				}
			}()
		}
	}()
	host, portStr, _ := net.SplitHostPort(lis.Addr().String())
	port, _ := strconv.Atoi(portStr)
	return Address{Host: host, Port: port}, func() { lis.Close(); <-done }
}

func TestPingSucceedsAgainstLiveListener(t *testing.T) {
	addr, stop := serve(t, func(line string) string { return "" })
	defer stop()

	p := New(addr, time.Second)
	if err := p.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestPingFailsAgainstClosedPort(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := lis.Addr().String()
	lis.Close()

	host, portStr, _ := net.SplitHostPort(addr)
	port, _ := strconv.Atoi(portStr)

	p := New(Address{Host: host, Port: port}, 200*time.Millisecond)
	err = p.Ping(context.Background())
	if err == nil {
		t.Fatal("Ping against closed port should fail")
	}
	if !IsUnreachable(err) {
		t.Errorf("IsUnreachable(%v) = false, want true", err)
	}
}

func TestGetSuccessorRoundTrip(t *testing.T) {
	want := Address{Host: "10.0.0.5", Port: 4001}
	addr, stop := serve(t, func(line string) string {
		if line != "get_successor" {
			t.Errorf("unexpected request line: %q", line)
		}
		b, _ := json.Marshal(want)
		return string(b)
	})
	defer stop()

	p := New(addr, time.Second)
	got, err := p.GetSuccessor(context.Background())
	if err != nil {
		t.Fatalf("GetSuccessor: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("GetSuccessor = %v, want %v", got, want)
	}
}

func TestGetPredecessorEmptyReplyIsErrNoPredecessor(t *testing.T) {
	addr, stop := serve(t, func(line string) string { return "" })
	defer stop()

	p := New(addr, time.Second)
	_, err := p.GetPredecessor(context.Background())
	if err != ErrNoPredecessor {
		t.Errorf("GetPredecessor err = %v, want ErrNoPredecessor", err)
	}
}

func TestFindSuccessorEncodesDecimalID(t *testing.T) {
	sp, _ := ring.NewSpace(16)
	id := sp.FromUint64(1234)
	want := Address{Host: "1.2.3.4", Port: 9}

	addr, stop := serve(t, func(line string) string {
		if line != "find_successor 1234" {
			t.Errorf("unexpected request line: %q", line)
		}
		b, _ := json.Marshal(want)
		return string(b)
	})
	defer stop()

	p := New(addr, time.Second)
	got, err := p.FindSuccessor(context.Background(), sp, id)
	if err != nil {
		t.Fatalf("FindSuccessor: %v", err)
	}
	if !got.Equal(want) {
		t.Errorf("FindSuccessor = %v, want %v", got, want)
	}
}

func TestNotifyEncodesHostPort(t *testing.T) {
	self := Address{Host: "10.0.0.9", Port: 4000}
	addr, stop := serve(t, func(line string) string {
		if line != "notify 10.0.0.9 4000" {
			t.Errorf("unexpected request line: %q", line)
		}
		return ""
	})
	defer stop()

	p := New(addr, time.Second)
	if err := p.Notify(context.Background(), self); err != nil {
		t.Fatalf("Notify: %v", err)
	}
}

func TestMalformedReplyIsTreatedAsUnreachable(t *testing.T) {
	addr, stop := serve(t, func(line string) string { return "not-json" })
	defer stop()

	p := New(addr, time.Second)
	_, err := p.GetSuccessor(context.Background())
	if err == nil {
		t.Fatal("expected malformed-reply error")
	}
	if !IsUnreachable(err) {
		t.Errorf("IsUnreachable(%v) = false, want true", err)
	}
}

func TestAddressJSONRoundTrip(t *testing.T) {
	a := Address{Host: "example.org", Port: 4000}
	b, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `["example.org",4000]` {
		t.Errorf("Marshal = %s, want two-element array form", b)
	}
	var got Address
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !got.Equal(a) {
		t.Errorf("round trip = %v, want %v", got, a)
	}
}

func TestPoolGetIsStableAndEvictClearsIt(t *testing.T) {
	pool := New(time.Second)
	addr := Address{Host: "127.0.0.1", Port: 4000}

	p1 := pool.Get(addr)
	p2 := pool.Get(addr)
	if p1 != p2 {
		t.Error("Get should return the same handle for the same address")
	}

	pool.Evict(addr)
	p3 := pool.Get(addr)
	if p3 == p1 {
		t.Error("Get after Evict should return a fresh handle")
	}
}
