package peer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
)

// readLine reads a single "\r\n"-terminated line from conn, per spec.md §6.
func readLine(conn net.Conn) (string, error) {
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// writeLine writes a single "\r\n"-terminated line to conn.
func writeLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line + "\r\n"))
	return err
}

// encodeAddress renders addr as the wire protocol's two-element JSON array.
func encodeAddress(addr Address) string {
	b, _ := json.Marshal(addr)
	return string(b)
}

// decodeAddress parses a two-element JSON array reply into an Address.
func decodeAddress(s string) (Address, error) {
	var a Address
	if err := json.Unmarshal([]byte(s), &a); err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return a, nil
}

// decodeAddressList parses a JSON array of address pairs.
func decodeAddressList(s string) ([]Address, error) {
	if s == "" {
		return nil, nil
	}
	var addrs []Address
	if err := json.Unmarshal([]byte(s), &addrs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	return addrs, nil
}
