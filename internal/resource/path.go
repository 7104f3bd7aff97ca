package resource

import (
	"fmt"
	"strconv"
	"strings"

	"framekit/internal/domain"
)

// Path addresses a resource by child indices from a root folder. The empty path is the root.
type Path []int

// ParsePath reads "0/3/1". "" and "/" are the root.
func ParsePath(s string) (Path, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return Path{}, nil
	}
	parts := strings.Split(s, "/")
	p := make(Path, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid path segment %q", part)}
		}
		p[i] = n
	}
	return p, nil
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, n := range p {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "/")
}

// Resolve walks p from root
func (p Path) Resolve(root *Folder) (Resource, error) {
	var cur Resource = root
	for depth, index := range p {
		folder, ok := cur.(*Folder)
		if !ok {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("path %s: %q is not a folder", p[:depth], cur.DisplayName())}
		}
		child := folder.At(index)
		if child == nil {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("path %s: no item at index %d", p[:depth+1], index)}
		}
		cur = child
	}
	return cur, nil
}

// ResolveFolder is Resolve restricted to folders
func (p Path) ResolveFolder(root *Folder) (*Folder, error) {
	r, err := p.Resolve(root)
	if err != nil {
		return nil, err
	}
	folder, ok := r.(*Folder)
	if !ok {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("path %s is not a folder", p)}
	}
	return folder, nil
}

// PathOf returns the path from the top of r's tree down to r
func PathOf(r Resource) Path {
	var rev []int
	for cur := r; cur.Parent() != nil; cur = cur.Parent() {
		rev = append(rev, cur.Parent().IndexOf(cur))
	}
	p := make(Path, len(rev))
	for i, n := range rev {
		p[len(rev)-1-i] = n
	}
	return p
}
