// Command neo6ctl is a one-shot admin client for the Admin Control Socket
// (§4.10): it dials the socket, sends exactly one length-prefixed JSON
// command frame, prints the response, and exits — grounded on edgectl's
// cmd/client-tm dial/request pattern, reframed from newline-delimited JSON
// to length-prefixed framing and from an interactive TUI to a single
// invocation per process the way cmd/configgen is structured.
package main

import (
	"encoding/binary"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strconv"
	"time"
)

type options struct {
	addr         string
	command      string
	protocol     string
	level        string
	connectionID string
	lines        int
	timeout      time.Duration
}

func parseFlags(args []string) options {
	fs := flag.NewFlagSet("neo6ctl", flag.ExitOnError)
	opts := options{}
	fs.StringVar(&opts.addr, "addr", "127.0.0.1:4001", "admin control socket address")
	fs.StringVar(&opts.command, "command", "Status", "admin command: Status|GetMetrics|GetConnections|GetProtocols|SetLogLevel|ReloadConfig|ReloadProtocols|TestProtocol|KillConnection|GetLogs|Shutdown")
	fs.StringVar(&opts.protocol, "protocol", "", "protocol name for TestProtocol")
	fs.StringVar(&opts.level, "level", "", "log level for SetLogLevel")
	fs.StringVar(&opts.connectionID, "connection-id", "", "connection id for KillConnection")
	fs.IntVar(&opts.lines, "lines", 100, "line count for GetLogs")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "socket dial/round-trip timeout")
	_ = fs.Parse(args)
	return opts
}

func main() {
	opts := parseFlags(os.Args[1:])
	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func run(opts options) error {
	conn, err := net.DialTimeout("tcp", opts.addr, opts.timeout)
	if err != nil {
		return fmt.Errorf("neo6ctl: dial %s: %w", opts.addr, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(opts.timeout))

	cmd := map[string]any{"command": opts.command}
	if opts.protocol != "" {
		cmd["protocol"] = opts.protocol
	}
	if opts.level != "" {
		cmd["level"] = opts.level
	}
	if opts.connectionID != "" {
		cmd["connection_id"] = opts.connectionID
	}
	if opts.command == "GetLogs" {
		cmd["lines"] = opts.lines
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("neo6ctl: encode command: %w", err)
	}
	if err := writeFrame(conn, payload); err != nil {
		return fmt.Errorf("neo6ctl: send command: %w", err)
	}

	respPayload, err := readFrame(conn)
	if err != nil {
		return fmt.Errorf("neo6ctl: read response: %w", err)
	}

	var pretty map[string]any
	if err := json.Unmarshal(respPayload, &pretty); err != nil {
		fmt.Println(string(respPayload))
		return nil
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		fmt.Println(string(respPayload))
		return nil
	}
	fmt.Println(string(out))
	return nil
}

func writeFrame(w io.Writer, payload []byte) error {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(payload)))
	if _, err := w.Write(lenBuf); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

func readFrame(r io.Reader) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length > 1<<20 {
		return nil, fmt.Errorf("neo6ctl: response frame too large: %s bytes", strconv.FormatUint(uint64(length), 10))
	}
	payload := make([]byte, length)
	_, err := io.ReadFull(r, payload)
	return payload, err
}
