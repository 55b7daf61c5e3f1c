package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/regaw-leinad/androidlib-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByComponent map[log.Component]int
	EventsByCategory  map[log.Category]int
	Sessions          map[string]*SessionStats
	Devices           map[string]*DeviceStats
	Exec              ExecStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single controller session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
}

// DeviceStats counts presence changes for one device.
type DeviceStats struct {
	Added     int
	Removed   int
	LastState string
}

// ExecStats summarizes process invocations.
type ExecStats struct {
	Total         int
	TimedOut      int
	LaunchFailed  int
	TotalDuration time.Duration
	MaxDuration   time.Duration
}

// Collect reads every event from r.
func Collect(r *log.Reader) (*Stats, error) {
	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Sessions:          make(map[string]*SessionStats),
		Devices:           make(map[string]*DeviceStats),
	}

	for event, err := range r.Events() {
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByComponent[event.Component]++
	s.EventsByCategory[event.Category]++

	// Track time range
	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	sess, ok := s.Sessions[event.SessionID]
	if !ok {
		sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Sessions[event.SessionID] = sess
	}
	sess.Events++
	if event.Timestamp.After(sess.LastSeen) {
		sess.LastSeen = event.Timestamp
	}

	switch {
	case event.Exec != nil:
		s.Exec.Total++
		s.Exec.TotalDuration += event.Exec.Duration
		if event.Exec.Duration > s.Exec.MaxDuration {
			s.Exec.MaxDuration = event.Exec.Duration
		}
		switch event.Exec.Outcome {
		case "TIMED_OUT":
			s.Exec.TimedOut++
		case "LAUNCH_FAILED":
			s.Exec.LaunchFailed++
		}
	case event.Presence != nil:
		dev, ok := s.Devices[event.DeviceID]
		if !ok {
			dev = &DeviceStats{}
			s.Devices[event.DeviceID] = dev
		}
		if event.Presence.Action == log.PresenceAdded {
			dev.Added++
		} else {
			dev.Removed++
		}
		if event.Presence.State != "" {
			dev.LastState = event.Presence.State
		}
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats, err := Collect(reader)
	if err != nil {
		return err
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== adbwatch Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for c := log.ComponentProcess; c <= log.ComponentController; c++ {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for c := log.CategoryExec; c <= log.CategoryError; c++ {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if stats.Exec.Total > 0 {
		avg := stats.Exec.TotalDuration / time.Duration(stats.Exec.Total)
		fmt.Fprintf(w, "Commands: %d (timed out %d, launch failed %d)\n",
			stats.Exec.Total, stats.Exec.TimedOut, stats.Exec.LaunchFailed)
		fmt.Fprintf(w, "  avg %s, max %s\n", formatDuration(avg), formatDuration(stats.Exec.MaxDuration))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Devices: %d\n", len(stats.Devices))
	serials := make([]string, 0, len(stats.Devices))
	for serial := range stats.Devices {
		serials = append(serials, serial)
	}
	sort.Strings(serials)
	for _, serial := range serials {
		d := stats.Devices[serial]
		fmt.Fprintf(w, "  %-20s +%d -%d", serial, d.Added, d.Removed)
		if d.LastState != "" {
			fmt.Fprintf(w, " (%s)", d.LastState)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\nSessions: %d\n", len(stats.Sessions))
	type sessionInfo struct {
		id    string
		stats *SessionStats
	}
	sessions := make([]sessionInfo, 0, len(stats.Sessions))
	for id, ss := range stats.Sessions {
		sessions = append(sessions, sessionInfo{id, ss})
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
	})
	for _, s := range sessions {
		duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenID(s.id), s.stats.Events, duration)
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
