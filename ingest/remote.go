package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-getter"

	"github.com/teranos/jbind/errors"
)

// IsRemote reports whether an input names something go-getter fetches:
// a forced getter ("git::", "s3::"), or a URL with a remote scheme.
func IsRemote(in string) bool {
	if strings.Contains(in, "::") {
		return true
	}
	u, err := url.Parse(in)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "http", "https", "git", "s3", "gcs", "hg":
		return true
	}
	return false
}

// Fetch downloads a remote input into a directory under cacheDir keyed by
// the input and returns that directory. Archives go-getter knows are
// unpacked; anything else is saved under its base name. A cached copy is
// reused unless refresh is set.
func Fetch(ctx context.Context, src, cacheDir string, refresh bool) (string, error) {
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return "", errors.Wrap(err, "locate cache directory")
		}
		cacheDir = filepath.Join(base, "jbind")
	}
	dst := cacheSlot(cacheDir, src)

	if !refresh {
		if entries, err := os.ReadDir(dst); err == nil && len(entries) > 0 {
			return dst, nil
		}
	}
	if err := os.RemoveAll(dst); err != nil {
		return "", errors.Wrap(err, "clear cached input")
	}
	pwd, err := os.Getwd()
	if err != nil {
		pwd = "."
	}
	client := &getter.Client{
		Ctx:     ctx,
		Src:     src,
		Dst:     dst,
		Pwd:     pwd,
		Mode:    getter.ClientModeAny,
		Getters: getter.Getters,
	}
	if err := client.Get(); err != nil {
		os.RemoveAll(dst)
		return "", errors.Wrapf(err, "fetch %s", src)
	}
	return dst, nil
}

func cacheSlot(cacheDir, src string) string {
	sum := sha256.Sum256([]byte(src))
	return filepath.Join(cacheDir, hex.EncodeToString(sum[:8]))
}
