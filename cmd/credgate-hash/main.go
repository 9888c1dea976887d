// Command credgate-hash produces password hashes for the database source and
// checks passwords against the default policy.
//
//	echo -n 'Str0ng!Pass' | go run ./cmd/credgate-hash --algo argon2id
//	go run ./cmd/credgate-hash --verify '$2a$10$...' < password.txt
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/MrEthical07/goCred/password"
)

type options struct {
	algo       string
	cost       int
	verify     string
	skipPolicy bool
}

func main() {
	var opts options
	pflag.StringVar(&opts.algo, "algo", "bcrypt", "hash algorithm: bcrypt or argon2id")
	pflag.IntVar(&opts.cost, "cost", 0, "bcrypt cost; 0 selects the library default")
	pflag.StringVar(&opts.verify, "verify", "", "compare the password with this hash instead of hashing")
	pflag.BoolVar(&opts.skipPolicy, "skip-policy", false, "hash even when the password violates the default policy")
	pflag.Parse()

	plain, err := readPassword(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read password: %v\n", err)
		os.Exit(2)
	}

	out, err := run(opts, plain, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(out)
}

// readPassword takes the first line of r without its line ending.
func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", password.ErrPasswordEmpty
	}
	return line, nil
}

func run(opts options, plain string, warn io.Writer) (string, error) {
	if opts.verify != "" {
		ok, err := password.Compare(plain, opts.verify)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errors.New("password does not match")
		}
		return "match", nil
	}

	result := password.Validate(plain, password.DefaultPolicy())
	if !result.Valid {
		for _, msg := range result.Errors {
			fmt.Fprintf(warn, "policy: %s\n", msg)
		}
		if !opts.skipPolicy {
			return "", result.Err()
		}
	}

	hasher, err := newHasher(opts)
	if err != nil {
		return "", err
	}
	return hasher.Hash(plain)
}

func newHasher(opts options) (password.Hasher, error) {
	switch opts.algo {
	case "bcrypt":
		return password.NewBcrypt(opts.cost)
	case "argon2id", "argon2":
		return password.NewArgon2(password.DefaultArgon2Config())
	default:
		return nil, fmt.Errorf("unknown algorithm %q", opts.algo)
	}
}
