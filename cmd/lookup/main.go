// Command lookup queries a running Chord node: by default it resolves a
// single key's successor and exits, optionally dropping into an
// interactive REPL for repeated queries against the ring.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/peterh/liner"

	"ChordDHT/internal/peer"
	"ChordDHT/internal/ring"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:4000", "address of an entry-point node")
	bits := flag.Int("bits", 160, "identifier space width in bits, must match the ring's dht.ring.bits")
	timeout := flag.Duration("timeout", 5*time.Second, "per-request timeout")
	interactive := flag.Bool("i", false, "start an interactive REPL instead of a one-shot lookup")
	flag.Parse()

	log.SetFlags(0)

	space, err := ring.NewSpace(*bits)
	if err != nil {
		log.Fatalf("invalid -bits: %v", err)
	}

	target, err := parseAddr(*addr)
	if err != nil {
		log.Fatalf("invalid -addr %q: %v", *addr, err)
	}

	if !*interactive {
		key := flag.Arg(0)
		if key == "" {
			key = fmt.Sprintf("%d", rand.Uint64())
		}
		id := space.IDFromString(key)
		p := peer.New(target, *timeout)
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		result, err := p.FindSuccessor(ctx, space, id)
		if err != nil {
			log.Fatalf("lookup failed: %v", err)
		}
		fmt.Printf("%s\n", result.String())
		return
	}

	repl(target, space, *timeout)
}

func parseAddr(s string) (peer.Address, error) {
	host, portStr, err := splitHostPort(s)
	if err != nil {
		return peer.Address{}, err
	}
	return peer.Address{Host: host, Port: portStr}, nil
}

func splitHostPort(s string) (string, int, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("missing port in address %q", s)
	}
	var port int
	if _, err := fmt.Sscanf(s[i+1:], "%d", &port); err != nil {
		return "", 0, fmt.Errorf("invalid port in address %q: %w", s, err)
	}
	return s[:i], port, nil
}

func repl(target peer.Address, space ring.Space, timeout time.Duration) {
	current := target
	p := peer.New(current, timeout)

	fmt.Printf("Chord lookup client. Connected to %s\n", current)
	fmt.Println("Available commands: successor/predecessor/successors/lookup <key>/closest <key>/ping/use <addr>/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("chord[%s]> ", current))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), timeout)

		switch cmd {
		case "successor":
			addr, err := p.GetSuccessor(ctx)
			printResult("successor", addr, err)

		case "predecessor":
			addr, err := p.GetPredecessor(ctx)
			printResult("predecessor", addr, err)

		case "successors":
			list, err := p.GetSuccessors(ctx)
			if err != nil {
				fmt.Printf("getsuccessors failed: %v\n", err)
				break
			}
			for i, a := range list {
				fmt.Printf("  [%d] %s\n", i, a.String())
			}

		case "lookup":
			if len(args) < 2 {
				fmt.Println("Usage: lookup <key>")
				break
			}
			id := space.IDFromString(args[1])
			addr, err := p.FindSuccessor(ctx, space, id)
			printResult("lookup", addr, err)

		case "closest":
			if len(args) < 2 {
				fmt.Println("Usage: closest <key>")
				break
			}
			id := space.IDFromString(args[1])
			addr, err := p.ClosestPrecedingFinger(ctx, id)
			printResult("closest", addr, err)

		case "ping":
			if err := p.Ping(ctx); err != nil {
				fmt.Printf("ping failed: %v\n", err)
			} else {
				fmt.Println("ok")
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				break
			}
			newAddr, err := parseAddr(args[1])
			if err != nil {
				fmt.Printf("invalid address: %v\n", err)
				break
			}
			current = newAddr
			p = peer.New(current, timeout)
			fmt.Printf("switched to %s\n", current)

		case "exit", "quit":
			cancel()
			return

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		cancel()
	}
}

func printResult(label string, addr peer.Address, err error) {
	if err != nil {
		fmt.Printf("%s failed: %v\n", label, err)
		return
	}
	fmt.Printf("%s: %s\n", label, addr.String())
}
