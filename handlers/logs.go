package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const (
	defaultLogLines = 200
	maxLogLines     = 5000
)

// LogsHandler exposes the tail of the rotating server log to local clients.
type LogsHandler struct {
	logFile string
}

func NewLogsHandler(logFile string) *LogsHandler {
	return &LogsHandler{logFile: logFile}
}

// Tail handles GET /api/logs?lines=N. Only loopback and private-network
// clients are served.
func (h *LogsHandler) Tail(w http.ResponseWriter, r *http.Request) {
	if !isLocalRequest(r) {
		jsonError(w, "Forbidden", http.StatusForbidden)
		return
	}
	if h.logFile == "" {
		jsonError(w, "No log file configured", http.StatusNotFound)
		return
	}

	n := defaultLogLines
	if v, err := strconv.Atoi(r.URL.Query().Get("lines")); err == nil && v > 0 {
		n = min(v, maxLogLines)
	}

	file, err := os.Open(h.logFile)
	if errors.Is(err, os.ErrNotExist) {
		jsonError(w, "Log file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, fmt.Sprintf("could not open log file: %v", err), http.StatusInternalServerError)
		return
	}
	defer file.Close()

	lines, err := readLastNLines(file, n)
	if err != nil {
		jsonError(w, fmt.Sprintf("could not read log file: %v", err), http.StatusInternalServerError)
		return
	}

	noStore(w)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, strings.Join(lines, "\n"))
}

func isLocalRequest(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}

// readLastNLines reads file backwards in chunks so large logs are not loaded
// whole.
func readLastNLines(file *os.File, n int) ([]string, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if stat.Size() == 0 {
		return nil, nil
	}

	const chunkSize = 64 * 1024
	var lines []string
	var leftover []byte

	position := stat.Size()
	for position > 0 && len(lines) < n {
		readSize := int64(chunkSize)
		if position < readSize {
			readSize = position
		}
		position -= readSize

		chunk := make([]byte, readSize)
		if _, err := file.ReadAt(chunk, position); err != nil && err != io.EOF {
			return nil, err
		}
		chunk = append(chunk, leftover...)

		chunkLines := bytes.Split(chunk, []byte("\n"))
		// first element may be a partial line
		leftover = chunkLines[0]

		for i := len(chunkLines) - 1; i > 0; i-- {
			line := string(bytes.TrimRight(chunkLines[i], "\r"))
			if line != "" || i == len(chunkLines)-1 {
				lines = append([]string{line}, lines...)
			}
			if len(lines) >= n {
				break
			}
		}
	}

	if len(leftover) > 0 && len(lines) < n {
		lines = append([]string{string(leftover)}, lines...)
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
