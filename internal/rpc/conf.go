package rpc

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Credentials holds the RPC auth material read from divi.conf.
type Credentials struct {
	User     string
	Password string
	Port     int
}

// ReadCredentials parses rpcuser, rpcpassword, and rpcport from a divi.conf
// file. Port falls back to defaultPort when absent.
func ReadCredentials(confPath string, defaultPort int) (Credentials, error) {
	file, err := os.Open(confPath)
	if err != nil {
		return Credentials{}, fmt.Errorf("read divi.conf at %s: %w", confPath, err)
	}
	defer file.Close()

	values := map[string]string{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		values[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return Credentials{}, fmt.Errorf("read divi.conf at %s: %w", confPath, err)
	}

	creds := Credentials{
		User:     values["rpcuser"],
		Password: values["rpcpassword"],
		Port:     defaultPort,
	}
	if creds.User == "" || creds.Password == "" {
		return Credentials{}, fmt.Errorf("rpcuser/rpcpassword not found in %s", confPath)
	}
	if raw := values["rpcport"]; raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Credentials{}, fmt.Errorf("invalid rpcport %q in %s", raw, confPath)
		}
		creds.Port = port
	}
	return creds, nil
}
