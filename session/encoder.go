package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionV1 = 1

// Encode serializes a session into the compact binary blob stored in Redis.
// SessionID is not encoded; it is the Redis key.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionV1)

	if err := writeString(&buf, s.UserID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, s.Username); err != nil {
		return nil, err
	}
	if err := writeString(&buf, s.IP); err != nil {
		return nil, err
	}

	if len(s.Permissions) > 65535 {
		return nil, errors.New("too many permissions")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(s.Permissions))); err != nil {
		return nil, err
	}
	for _, perm := range s.Permissions {
		if err := writeString(&buf, perm); err != nil {
			return nil, err
		}
	}

	for _, ts := range []int64{s.LoginAt, s.CreatedAt, s.LastAccessAt, s.ExpiresAt} {
		if err := binary.Write(&buf, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionV1 {
		return nil, errors.New("invalid session format version")
	}

	sess := &Session{}
	if sess.UserID, err = readString(reader); err != nil {
		return nil, err
	}
	if sess.Username, err = readString(reader); err != nil {
		return nil, err
	}
	if sess.IP, err = readString(reader); err != nil {
		return nil, err
	}

	var permCount uint16
	if err := binary.Read(reader, binary.BigEndian, &permCount); err != nil {
		return nil, err
	}
	if permCount > 0 {
		sess.Permissions = make([]string, 0, permCount)
		for i := 0; i < int(permCount); i++ {
			perm, err := readString(reader)
			if err != nil {
				return nil, err
			}
			sess.Permissions = append(sess.Permissions, perm)
		}
	}

	for _, ts := range []*int64{&sess.LoginAt, &sess.CreatedAt, &sess.LastAccessAt, &sess.ExpiresAt} {
		if err := binary.Read(reader, binary.BigEndian, ts); err != nil {
			return nil, err
		}
	}

	return sess, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return errors.New("string field too long")
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	length, err := reader.ReadByte()
	if err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
