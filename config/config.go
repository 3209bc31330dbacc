package config

import (
	"errors"
	"flag"
	"net"
	"regexp"
	"strconv"
	"time"
)

type Command int

const (
	CmdServe Command = iota
	CmdSetPassword
)

type Config struct {
	Command     Command
	Addr        string
	DBPath      string
	PasswdFile  string
	TokenSecret string
	SessionTTL  time.Duration
	Debug       bool
}

func ParseFlags() (cfg Config, err error) {
	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 80, "listen port number (default 80)")
	flag.StringVar(&cfg.DBPath, "db-path", "survey.sqlite", "path to SQLite3 DB file (default survey.sqlite)")
	flag.StringVar(&cfg.PasswdFile, "passwd-file", "passwd", "path to admin password hash file (default passwd)")
	flag.StringVar(&cfg.TokenSecret, "token-secret", "", "secret key for session token encryption and decryption")
	var ttl uint
	flag.UintVar(&ttl, "session-ttl", 43200, "admin session TTL in seconds (default 43200 = 12h)")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.SessionTTL = time.Duration(ttl) * time.Second

	switch flag.Arg(0) {
	case "":
		cfg.Command = CmdServe
		if cfg.TokenSecret == "" {
			err = errors.New("missing parameter -token-secret")
		}
	case "set-password":
		cfg.Command = CmdSetPassword
	default:
		err = errors.New("unknown command " + strconv.Quote(flag.Arg(0)))
	}

	return
}

func (cfg Config) Url() (url string) {
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}
