package usage

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis speaks just enough RESP for RedisStore.Add: HINCRBY succeeds
// and EXPIRE answers with the configured error.
func fakeRedis(t *testing.T, expireErr string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveRESP(conn, expireErr)
		}
	}()
	return "redis://" + ln.Addr().String() + "/0"
}

func serveRESP(conn net.Conn, expireErr string) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		args, err := readCommand(r)
		if err != nil {
			return
		}
		var reply string
		switch strings.ToUpper(args[0]) {
		case "HINCRBY":
			reply = ":1\r\n"
		case "EXPIRE":
			reply = "-ERR " + expireErr + "\r\n"
		case "HELLO":
			reply = "-ERR unknown command 'HELLO'\r\n"
		case "PING":
			reply = "+PONG\r\n"
		default:
			reply = "+OK\r\n"
		}
		if _, err := conn.Write([]byte(reply)); err != nil {
			return
		}
	}
}

func readCommand(r *bufio.Reader) ([]string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(line, "*") {
		return nil, fmt.Errorf("unexpected %q", line)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line[1:]))
	if err != nil {
		return nil, err
	}
	args := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if _, err := r.ReadString('\n'); err != nil { // $len
			return nil, err
		}
		arg, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		args = append(args, strings.TrimSuffix(arg, "\r\n"))
	}
	return args, nil
}

func TestRedisStoreAddReportsExpireFailure(t *testing.T) {
	s, err := NewRedisStore(fakeRedis(t, "expire failed"), "sl:", time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = s.Add(ctx, "g", FeatureChat, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "usage: expire sl:usage:g")
	assert.Contains(t, err.Error(), "expire failed")
}

func TestRedisStoreAddWithoutTTL(t *testing.T) {
	s, err := NewRedisStore(fakeRedis(t, "unused"), "sl:", 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := s.Add(ctx, "g", FeatureChat, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
