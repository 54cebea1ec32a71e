package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenDualStack binds a wildcard IPv6 UDP socket that also accepts
// IPv4-mapped peers, with SO_REUSEADDR so a restarted server can take
// the port back immediately.
func listenDualStack(port int) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				if serr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); serr != nil {
					return
				}
				serr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 0)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
	pc, err := lc.ListenPacket(context.Background(), "udp6", fmt.Sprintf("[::]:%d", port))
	if err != nil {
		return nil, err
	}
	return pc.(*net.UDPConn), nil
}

func main() {
	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Println(usageLine)
		os.Exit(1)
	}

	conn, err := listenDualStack(opts.Port)
	if err != nil {
		log.Fatalf("listen error: %v", err)
	}
	defer conn.Close()

	log.Printf("server listening on %s (board %dx%d, seed %d)",
		conn.LocalAddr(), opts.Width, opts.Height, opts.Seed)

	srv := NewServer(conn, opts)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
