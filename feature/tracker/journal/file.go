package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// envelope is the on-disk form of one event line.
type envelope struct {
	Kind  Kind            `json:"kind"`
	At    time.Time       `json:"at"`
	Lobby json.RawMessage `json:"lobby,omitempty"`
}

// OpenDir returns an OpenFunc reading feeds from subdirectories of root.
// Each feed directory holds numbered session files ("3.jsonl") of
// line-delimited JSON envelopes; the seed cursor selects the session file to
// start from. Offsets within a resumed session are deliberately ignored: the
// engine's storage checkpoint suppresses replayed effects, so re-reading a
// session from the top is safe.
func OpenDir(root string) OpenFunc {
	return func(seeds []FeedSeed) (Source, error) {
		fs := &fileSource{}
		for _, seed := range seeds {
			session := seed.Cursor.Session
			if session == 0 {
				session = 1
			}
			fr := &feedReader{
				name:    seed.Name,
				dir:     filepath.Join(root, seed.Name),
				session: session,
			}
			fs.feeds = append(fs.feeds, fr)
		}
		return fs, nil
	}
}

type fileSource struct {
	feeds []*feedReader

	mu     sync.Mutex
	closed bool
}

type feedReader struct {
	name    string
	dir     string
	session uint32
	offset  int64

	file *os.File
	r    *bufio.Reader

	peeked *Event
	resume Cursor
	done   bool
}

// Next merges the feeds by event time: among the buffered head events of all
// live feeds, the earliest wins.
func (s *fileSource) Next(ctx context.Context) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	var pick *feedReader
	for _, fr := range s.feeds {
		if fr.done {
			continue
		}
		if fr.peeked == nil {
			if err := fr.advance(); err != nil {
				return nil, fmt.Errorf("feed %s: %w", fr.name, err)
			}
			if fr.done {
				continue
			}
		}
		if pick == nil || fr.peeked.At.Before(pick.peeked.At) {
			pick = fr
		}
	}
	if pick == nil {
		return nil, io.EOF
	}

	ev := pick.peeked
	pick.peeked = nil
	pick.resume = ev.Cursor
	return ev, nil
}

func (s *fileSource) ResumePointer(feed string) (Cursor, bool) {
	for _, fr := range s.feeds {
		if fr.name == feed {
			return fr.resume, fr.resume != Cursor{}
		}
	}
	return Cursor{}, false
}

func (s *fileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, fr := range s.feeds {
		if fr.file != nil {
			fr.file.Close()
			fr.file = nil
		}
	}
	return nil
}

// advance decodes the next line of the feed into fr.peeked, rolling over to
// the next session file when the current one is exhausted.
func (fr *feedReader) advance() error {
	for {
		if fr.file == nil {
			path := filepath.Join(fr.dir, fmt.Sprintf("%d.jsonl", fr.session))
			f, err := os.Open(path)
			if os.IsNotExist(err) {
				fr.done = true
				return nil
			}
			if err != nil {
				return err
			}
			fr.file = f
			fr.r = bufio.NewReader(f)
			fr.offset = 0
		}

		line, err := fr.r.ReadBytes('\n')
		if len(line) == 0 && err == io.EOF {
			fr.file.Close()
			fr.file = nil
			fr.session++
			continue
		}
		if err != nil && err != io.EOF {
			return err
		}
		fr.offset += int64(len(line))

		ev, derr := decodeLine(line)
		if derr != nil {
			return fmt.Errorf("session %d offset %d: %w", fr.session, fr.offset, derr)
		}
		ev.Feed = fr.name
		ev.Cursor = Cursor{Session: fr.session, Offset: fr.offset}
		fr.peeked = ev
		return nil
	}
}

func decodeLine(line []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, err
	}

	var payload Payload
	switch env.Kind {
	case KindUpdateLobbyList:
		payload = UpdateLobbyList{}
	case KindNewLobby, KindCloseLobby, KindUpdateLobbySnapshot, KindUpdateLobbySlots:
		var st LobbyState
		if err := json.Unmarshal(env.Lobby, &st); err != nil {
			return nil, err
		}
		switch env.Kind {
		case KindNewLobby:
			payload = NewLobby{Lobby: st}
		case KindCloseLobby:
			payload = CloseLobby{Lobby: st}
		case KindUpdateLobbySnapshot:
			payload = UpdateLobbySnapshot{Lobby: st}
		default:
			payload = UpdateLobbySlots{Lobby: st}
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Kind)
	}

	return &Event{At: env.At, Payload: payload}, nil
}
