package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"git.quillwiki.net/quill/gazette/src/db"
	"git.quillwiki.net/quill/gazette/src/gazdata"
	"git.quillwiki.net/quill/gazette/src/models"
	"git.quillwiki.net/quill/gazette/src/oops"
	"golang.org/x/crypto/argon2"
)

/*
API tokens for the subscription endpoints. A token is a random string shown
to the user once; only an argon2id hash is stored, in the same
"algo$config$salt$hash" form as other credentials on the platform.
*/

const saltLength = 16
const keyLength = 64

type HashedToken struct {
	AlgoConfig string

	// Base64-encoded so the whole thing can live in one text column.
	Salt string
	Hash string
}

func ParseTokenString(s string) (HashedToken, error) {
	pieces := strings.SplitN(s, "$", 4)
	if len(pieces) < 4 || pieces[0] != "argon2id" {
		return HashedToken{}, oops.New(nil, "unrecognized token string format")
	}

	return HashedToken{
		AlgoConfig: pieces[1],
		Salt:       pieces[2],
		Hash:       pieces[3],
	}, nil
}

func (t HashedToken) String() string {
	return fmt.Sprintf("argon2id$%s$%s$%s", t.AlgoConfig, t.Salt, t.Hash)
}

type Argon2idConfig struct {
	Time      uint32
	Memory    uint32
	Threads   uint8
	KeyLength uint32
}

func ParseArgon2idConfig(cfg string) (Argon2idConfig, error) {
	parts := strings.Split(cfg, ",")
	if len(parts) < 4 {
		return Argon2idConfig{}, oops.New(nil, "malformed Argon2id config")
	}

	t64, err := strconv.ParseUint(parts[0][2:], 10, 32)
	if err != nil {
		return Argon2idConfig{}, oops.New(err, "failed to parse time in Argon2id config")
	}

	m64, err := strconv.ParseUint(parts[1][2:], 10, 32)
	if err != nil {
		return Argon2idConfig{}, oops.New(err, "failed to parse memory in Argon2id config")
	}

	p64, err := strconv.ParseUint(parts[2][2:], 10, 8)
	if err != nil {
		return Argon2idConfig{}, oops.New(err, "failed to parse threads in Argon2id config")
	}

	l64, err := strconv.ParseUint(parts[3][2:], 10, 32)
	if err != nil {
		return Argon2idConfig{}, oops.New(err, "failed to parse key length in Argon2id config")
	}

	return Argon2idConfig{
		Time:      uint32(t64),
		Memory:    uint32(m64),
		Threads:   uint8(p64),
		KeyLength: uint32(l64),
	}, nil
}

func (c Argon2idConfig) String() string {
	return fmt.Sprintf("t=%v,m=%v,p=%v,l=%v", c.Time, c.Memory, c.Threads, c.KeyLength)
}

func HashToken(token string) HashedToken {
	salt := make([]byte, saltLength)
	io.ReadFull(rand.Reader, salt)
	saltEnc := base64.StdEncoding.EncodeToString(salt)

	cfg := Argon2idConfig{
		Time:      1,
		Memory:    40 * 1024, // KiB
		Threads:   1,
		KeyLength: keyLength,
	}

	key := argon2.IDKey([]byte(token), salt, cfg.Time, cfg.Memory, cfg.Threads, cfg.KeyLength)
	keyEnc := base64.StdEncoding.EncodeToString(key)

	return HashedToken{
		AlgoConfig: cfg.String(),
		Salt:       saltEnc,
		Hash:       keyEnc,
	}
}

func CheckToken(token string, hashed HashedToken) (bool, error) {
	cfg, err := ParseArgon2idConfig(hashed.AlgoConfig)
	if err != nil {
		return false, err
	}

	salt, err := base64.StdEncoding.DecodeString(hashed.Salt)
	if err != nil {
		return false, oops.New(err, "failed to decode salt")
	}

	newHash := argon2.IDKey([]byte(token), salt, cfg.Time, cfg.Memory, cfg.Threads, cfg.KeyLength)
	newHashEnc := base64.StdEncoding.EncodeToString(newHash)

	return bytes.Equal([]byte(newHashEnc), []byte(hashed.Hash)), nil
}

var ErrBadToken = errors.New("invalid API token")

/*
Mints a new API token for a user. Returns the plaintext token exactly once;
it cannot be recovered later.
*/
func CreateAPIToken(ctx context.Context, conn db.ConnOrTx, userID int, name string) (string, *models.APIToken, error) {
	plaintext := makeRandomToken(40)
	hashed := HashToken(plaintext)

	token, err := db.QueryOne[models.APIToken](ctx, conn,
		`
		INSERT INTO api_tokens (user_id, name, token_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING $columns
		`,
		userID, name, hashed.String(),
	)
	if err != nil {
		return "", nil, oops.New(err, "failed to persist API token")
	}

	return plaintext, token, nil
}

/*
Resolves an API token to its owning user. Returns ErrBadToken if the token
matches no stored hash or the owner's account is not active.

Token ids are not part of the wire format, so this checks the presented
token against every stored hash for the claimed user. Tokens are presented
as "userID:token" to keep that scan per-user rather than global.
*/
func ValidateAPIToken(ctx context.Context, conn db.ConnOrTx, presented string) (*models.User, error) {
	idStr, plaintext, found := strings.Cut(presented, ":")
	if !found {
		return nil, ErrBadToken
	}
	userID, err := strconv.Atoi(idStr)
	if err != nil {
		return nil, ErrBadToken
	}

	tokens, err := db.Query[models.APIToken](ctx, conn,
		`SELECT $columns FROM api_tokens WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, oops.New(err, "failed to fetch API tokens")
	}

	for _, token := range tokens {
		hashed, err := ParseTokenString(token.TokenHash)
		if err != nil {
			return nil, err
		}
		ok, err := CheckToken(plaintext, hashed)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		user, err := gazdata.FetchUser(ctx, conn, token.UserID, gazdata.UsersQuery{})
		if err != nil {
			if errors.Is(err, db.NotFound) {
				return nil, ErrBadToken
			}
			return nil, err
		}

		_, err = conn.Exec(ctx,
			`UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`,
			token.ID, time.Now(),
		)
		if err != nil {
			return nil, oops.New(err, "failed to record API token use")
		}

		return user, nil
	}

	return nil, ErrBadToken
}

func DeleteAPIToken(ctx context.Context, conn db.ConnOrTx, userID int, tokenID int) error {
	_, err := conn.Exec(ctx,
		`DELETE FROM api_tokens WHERE id = $1 AND user_id = $2`,
		tokenID, userID,
	)
	if err != nil {
		return oops.New(err, "failed to delete API token")
	}
	return nil
}
