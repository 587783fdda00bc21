package ocflv1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ocfl-archive/ocflgo"
	"github.com/ocfl-archive/ocflgo/digest"
)

var (
	invSidecarContentsRexp = regexp.MustCompile(`^([a-fA-F0-9]+)\s+inventory\.json[\n]?$`)
	ErrVersionNotFound     = errors.New("version not found in inventory")
)

// Inventory represents the contents of an OCFL v1.x inventory.json file.
type Inventory struct {
	ID               string                  `json:"id"`
	Type             ocfl.InventoryType      `json:"type"`
	DigestAlgorithm  string                  `json:"digestAlgorithm"`
	Head             ocfl.VNum               `json:"head"`
	ContentDirectory string                  `json:"contentDirectory,omitempty"`
	Manifest         ocfl.DigestMap          `json:"manifest"`
	Versions         map[ocfl.VNum]*Version  `json:"versions"`
	Fixity           map[string]ocfl.DigestMap `json:"fixity,omitempty"`

	digest string // inventory digest, set when read from storage

	// MutableHead and RevisionNum are not part of the OCFL inventory.json
	// schema; they're set by ReadMutableHead when inv was read from the
	// mutable-head extension's staged inventory rather than the object
	// root, and record the revision most recently staged there.
	MutableHead bool
	RevisionNum ocfl.VNum
}

// Version represents an entry in the inventory's "versions" block.
type Version struct {
	Created time.Time      `json:"created"`
	State   ocfl.DigestMap `json:"state"`
	Message string         `json:"message,omitempty"`
	User    *ocfl.User     `json:"user,omitempty"`
}

// Digest returns the inventory's own digest, as read from its sidecar file.
// It's empty for an inventory that hasn't been read from storage yet.
func (inv Inventory) Digest() string { return inv.digest }

// Version returns the version entry for version number v (1-indexed). If v
// is 0, the head version is returned. Returns nil if no such version exists.
func (inv Inventory) Version(v int) *Version {
	if inv.Versions == nil {
		return nil
	}
	if v == 0 {
		return inv.Versions[inv.Head]
	}
	return inv.Versions[ocfl.V(v, inv.Head.Padding())]
}

// VNums returns a sorted slice of the version numbers present in the
// inventory's "versions" block.
func (inv Inventory) VNums() ocfl.VNums {
	vnums := make(ocfl.VNums, 0, len(inv.Versions))
	for v := range inv.Versions {
		vnums = append(vnums, v)
	}
	sort.Sort(vnums)
	return vnums
}

// ContentPath resolves the logical path from version v's state to a content
// (manifest) path, relative to the object root.
func (inv Inventory) ContentPath(v int, logical string) (string, error) {
	ver := inv.Version(v)
	if ver == nil {
		return "", ErrVersionNotFound
	}
	var sum string
	ver.State.EachPath(func(p, dig string) bool {
		if p == logical {
			sum = dig
			return false
		}
		return true
	})
	if sum == "" {
		return "", fmt.Errorf("no path: %s", logical)
	}
	paths, ok := inv.Manifest[sum]
	if !ok || len(paths) == 0 {
		return "", fmt.Errorf("missing manifest entry for: %s", sum)
	}
	return paths[0], nil
}

// NewInventory builds the inventory for a new object version.
//
// If base is the zero-head inventory created by Commit for a brand-new
// object, the result is the object's first version. Otherwise it's the
// successor to base's head version.
//
// newVersion.State is used as-is for the new version's state. Any digest in
// newVersion.State that isn't already present in base's manifest is treated
// as new content: each of its logical paths (in sorted order, optionally
// rewritten by pathFn) is joined to the new version number and the
// inventory's content directory, and every resulting path is added to the
// manifest for that digest. fixity, if non-nil, supplies supplementary digest
// values for new content.
func NewInventory(base *Inventory, newVersion *Version, fixity ocfl.FixitySource, pathFn func([]string) []string) (*Inventory, error) {
	if base == nil {
		return nil, errors.New("base inventory is required")
	}
	if newVersion == nil || newVersion.State == nil {
		return nil, errors.New("new version state is required")
	}
	head, err := base.Head.Next()
	if err != nil {
		return nil, fmt.Errorf("inventory versioning scheme does not support versions beyond %s: %w", base.Head, err)
	}
	newInv := &Inventory{
		ID:               base.ID,
		Type:             base.Type,
		DigestAlgorithm:  base.DigestAlgorithm,
		Head:             head,
		ContentDirectory: base.ContentDirectory,
		Manifest:         base.Manifest.Merge(ocfl.DigestMap{}),
		Versions:         make(map[ocfl.VNum]*Version, len(base.Versions)+1),
		Fixity:           make(map[string]ocfl.DigestMap, len(base.Fixity)),
	}
	for v, ver := range base.Versions {
		newInv.Versions[v] = ver
	}
	for alg, m := range base.Fixity {
		newInv.Fixity[alg] = m.Merge(ocfl.DigestMap{})
	}
	newInv.Versions[head] = newVersion

	// content paths for logical paths with digests not already in the
	// manifest: these are the files Commit must transfer.
	var newDigests []string
	for dig := range newVersion.State {
		if !newInv.Manifest.DigestExists(dig) {
			newDigests = append(newDigests, dig)
		}
	}
	sort.Strings(newDigests)
	for _, dig := range newDigests {
		logicalPaths := append([]string(nil), newVersion.State[dig]...)
		sort.Strings(logicalPaths)
		contentPaths := append([]string(nil), logicalPaths...)
		if pathFn != nil {
			contentPaths = pathFn(contentPaths)
		}
		for _, p := range contentPaths {
			manPath := path.Join(head.String(), newInv.ContentDirectory, p)
			newInv.Manifest[dig] = append(newInv.Manifest[dig], manPath)
		}
		if fixity == nil {
			continue
		}
		for alg, sum := range fixity.GetFixity(dig) {
			if newInv.Fixity[alg] == nil {
				newInv.Fixity[alg] = ocfl.DigestMap{}
			}
			newInv.Fixity[alg][sum] = append(newInv.Fixity[alg][sum], newInv.Manifest[dig]...)
		}
	}
	return newInv, nil
}

// WriteInventory marshals inv as JSON, writing inventory.json and its digest
// sidecar to each of dirs within fsys.
func WriteInventory(ctx context.Context, fsys ocfl.WriteFS, inv *Inventory, dirs ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	alg, err := digest.Get(inv.DigestAlgorithm)
	if err != nil {
		return err
	}
	byt, err := json.MarshalIndent(inv, "", " ")
	if err != nil {
		return fmt.Errorf("encoding inventory: %w", err)
	}
	h := alg.Digester()
	if _, err := io.Copy(h, bytes.NewReader(byt)); err != nil {
		return err
	}
	sum := h.String()
	for _, dir := range dirs {
		invFile := path.Join(dir, inventoryFile)
		sideFile := invFile + "." + inv.DigestAlgorithm
		if _, err := fsys.Write(ctx, invFile, bytes.NewReader(byt)); err != nil {
			return fmt.Errorf("writing inventory: %w", err)
		}
		if _, err := fsys.Write(ctx, sideFile, strings.NewReader(sum+" "+inventoryFile+"\n")); err != nil {
			return fmt.Errorf("writing inventory sidecar: %w", err)
		}
	}
	return nil
}

// readInventorySidecar parses the contents of an inventory sidecar file,
// returning the digest it records.
func readInventorySidecar(ctx context.Context, fsys ocfl.FS, name string) (string, error) {
	file, err := fsys.OpenFile(ctx, name)
	if err != nil {
		return "", err
	}
	defer file.Close()
	cont, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("reading inventory sidecar: %w", err)
	}
	matches := invSidecarContentsRexp.FindSubmatch(cont)
	if len(matches) != 2 {
		return "", fmt.Errorf("%w: %s", ErrInvSidecarContents, string(cont))
	}
	return string(matches[1]), nil
}
