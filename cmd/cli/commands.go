package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/beatbattle/internal/auth"
	"github.com/and161185/beatbattle/internal/convert"
)

var errUsage = errors.New("usage")

type cli struct {
	base  string
	http  *http.Client
	out   io.Writer
	token func() (string, error)
}

// trackFlags registers the submission flags shared by create, join, challenge and accept.
func trackFlags(fs *flag.FlagSet) *convert.Track {
	t := &convert.Track{}
	fs.StringVar(&t.DisplayName, "name", "", "display name")
	fs.StringVar(&t.TrackName, "track", "", "track name")
	fs.StringVar(&t.MediaRef, "media", "", "media reference")
	return t
}

func pageQuery(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func requireID(s string) (string, error) {
	if _, err := uuid.FromString(s); err != nil {
		return "", fmt.Errorf("-id: invalid uuid %q", s)
	}
	return s, nil
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	switch cmd {
	case "version":
		fmt.Fprintf(c.out, "bb %s (%s)\n", version, buildDate)
		return nil

	case "devtoken":
		key := fs.String("key", "", "JWT signing key of the target server")
		user := fs.String("user", "", "user uuid (random when empty)")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		if err := fs.Parse(args); err != nil || *key == "" {
			return errUsage
		}
		id := uuid.Must(uuid.NewV4())
		if *user != "" {
			var err error
			if id, err = uuid.FromString(*user); err != nil {
				return fmt.Errorf("-user: %w", err)
			}
		}
		tok, exp, err := auth.Issue([]byte(*key), id, *ttl, time.Now())
		if err != nil {
			return err
		}
		if err := saveToken(tokenFile{AccessToken: tok, UserID: id.String(), ExpiresAt: exp}); err != nil {
			return err
		}
		fmt.Fprintln(c.out, id.String())
		return nil

	case "login":
		raw := fs.String("token", "", "bearer token issued by the auth provider")
		if err := fs.Parse(args); err != nil || *raw == "" {
			return errUsage
		}
		// expiry is read without verification; the server checks the signature
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(*raw, &claims); err != nil {
			return fmt.Errorf("parse token: %w", err)
		}
		exp := time.Now().Add(15 * time.Minute)
		if claims.ExpiresAt != nil {
			exp = claims.ExpiresAt.Time
		}
		if err := saveToken(tokenFile{AccessToken: *raw, UserID: claims.Subject, ExpiresAt: exp}); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "ok")
		return nil

	case "wallet":
		ledger := fs.Bool("ledger", false, "show ledger history")
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "page offset")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		if !*ledger {
			var w convert.Wallet
			if err := c.call(ctx, http.MethodGet, "/api/wallet", nil, nil, &w); err != nil {
				return err
			}
			printJSON(c.out, w)
			return nil
		}
		q := url.Values{}
		pageQuery(q, *limit, *offset)
		var out map[string]any
		if err := c.call(ctx, http.MethodGet, "/api/wallet/ledger", q, nil, &out); err != nil {
			return err
		}
		printJSON(c.out, out["items"])
		return nil

	case "battles":
		status := fs.String("status", "", "open|matched|resolved")
		typ := fs.String("type", "", "beat|song")
		genre := fs.String("genre", "", "genre")
		user := fs.String("user", "", "participant uuid")
		limit := fs.Int("limit", 0, "page size")
		offset := fs.Int("offset", 0, "page offset")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		q := url.Values{}
		for k, v := range map[string]string{"status": *status, "type": *typ, "genre": *genre, "user_id": *user} {
			if v != "" {
				q.Set(k, v)
			}
		}
		pageQuery(q, *limit, *offset)
		var out struct {
			Items []convert.Battle `json:"items"`
		}
		if err := c.call(ctx, http.MethodGet, "/api/battles", q, nil, &out); err != nil {
			return err
		}
		printJSON(c.out, out.Items)
		return nil

	case "battle":
		id := fs.String("id", "", "battle uuid")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		bid, err := requireID(*id)
		if err != nil {
			return err
		}
		var b convert.Battle
		if err := c.call(ctx, http.MethodGet, "/api/battles/"+bid, nil, nil, &b); err != nil {
			return err
		}
		printJSON(c.out, b)
		return nil

	case "create":
		var body convert.CreateBattleRequest
		fs.StringVar(&body.Type, "type", "beat", "beat|song")
		fs.StringVar(&body.Genre, "genre", "", "genre")
		fs.Int64Var(&body.EntryFee, "fee", 0, "entry fee (0 = server default)")
		fs.StringVar(&body.Duration, "duration", "", "voting window, e.g. 24h")
		track := trackFlags(fs)
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		body.Track = *track
		var b convert.Battle
		if err := c.call(ctx, http.MethodPost, "/api/battles", nil, body, &b); err != nil {
			return err
		}
		printJSON(c.out, b)
		return nil

	case "join":
		id := fs.String("id", "", "battle uuid")
		var body convert.JoinBattleRequest
		fs.Int64Var(&body.EntryFee, "fee", 0, "expected entry fee (0 = accept the battle's)")
		track := trackFlags(fs)
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		bid, err := requireID(*id)
		if err != nil {
			return err
		}
		body.Track = *track
		var b convert.Battle
		if err := c.call(ctx, http.MethodPost, "/api/battles/"+bid+"/join", nil, body, &b); err != nil {
			return err
		}
		printJSON(c.out, b)
		return nil

	case "vote":
		id := fs.String("id", "", "battle uuid")
		side := fs.String("side", "", "left|right")
		if err := fs.Parse(args); err != nil || *side == "" {
			return errUsage
		}
		bid, err := requireID(*id)
		if err != nil {
			return err
		}
		if err := c.call(ctx, http.MethodPost, "/api/battles/"+bid+"/votes", nil, convert.VoteRequest{Side: *side}, nil); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "ok")
		return nil

	case "challenge":
		var body convert.CreateChallengeRequest
		fs.StringVar(&body.ChallengedID, "to", "", "challenged user uuid")
		fs.StringVar(&body.Type, "type", "beat", "beat|song")
		fs.StringVar(&body.Genre, "genre", "", "genre")
		fs.StringVar(&body.Message, "msg", "", "message")
		track := trackFlags(fs)
		if err := fs.Parse(args); err != nil || body.ChallengedID == "" {
			return errUsage
		}
		body.Track = *track
		var ch convert.Challenge
		if err := c.call(ctx, http.MethodPost, "/api/challenges", nil, body, &ch); err != nil {
			return err
		}
		printJSON(c.out, ch)
		return nil

	case "accept":
		id := fs.String("id", "", "challenge uuid")
		track := trackFlags(fs)
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		rid, err := requireID(*id)
		if err != nil {
			return err
		}
		var b convert.Battle
		body := convert.AcceptChallengeRequest{Track: *track}
		if err := c.call(ctx, http.MethodPost, "/api/challenges/"+rid+"/accept", nil, body, &b); err != nil {
			return err
		}
		printJSON(c.out, b)
		return nil

	case "decline":
		id := fs.String("id", "", "challenge uuid")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		rid, err := requireID(*id)
		if err != nil {
			return err
		}
		if err := c.call(ctx, http.MethodPost, "/api/challenges/"+rid+"/decline", nil, nil, nil); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "ok")
		return nil

	case "pending":
		dir := fs.String("dir", "incoming", "incoming|outgoing")
		if err := fs.Parse(args); err != nil {
			return errUsage
		}
		var out struct {
			Items []convert.Challenge `json:"items"`
		}
		q := url.Values{"direction": {*dir}}
		if err := c.call(ctx, http.MethodGet, "/api/challenges/pending", q, nil, &out); err != nil {
			return err
		}
		printJSON(c.out, out.Items)
		return nil

	default:
		return errUsage
	}
}
