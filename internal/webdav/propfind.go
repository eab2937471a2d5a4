package webdav

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
)

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:">
  <d:prop>
    <d:resourcetype/>
    <d:getcontentlength/>
  </d:prop>
</d:propfind>`

// Entry is one child of a listed collection.
type Entry struct {
	Name  string // base name; collections carry a trailing "/"
	IsDir bool
	Size  int64
}

type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"DAV: response"`
}

type davResponse struct {
	Href     string        `xml:"DAV: href"`
	Propstat []davPropstat `xml:"DAV: propstat"`
}

type davPropstat struct {
	Status string `xml:"DAV: status"`
	Prop   struct {
		ResourceType struct {
			Collection *struct{} `xml:"DAV: collection"`
		} `xml:"DAV: resourcetype"`
		ContentLength string `xml:"DAV: getcontentlength"`
	} `xml:"DAV: prop"`
}

// List returns the names of the direct children of remoteDir, in server
// order. The collection itself is not included.
func (c *Client) List(ctx context.Context, remoteDir string) ([]string, error) {
	entries, err := c.ListEntries(ctx, remoteDir)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}

	return names, nil
}

// ListEntries issues a depth-1 PROPFIND on remoteDir.
func (c *Client) ListEntries(ctx context.Context, remoteDir string) ([]Entry, error) {
	target := c.davURL(remoteDir)
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}
	c.Logger.Debug("PROPFIND", "url", target)

	req, err := c.newRequest(ctx, "PROPFIND", target, strings.NewReader(propfindBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Depth", "1")
	req.Header.Set("Content-Type", "application/xml; charset=utf-8")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMultiStatus {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, NewPROPFINDError(resp.StatusCode, remoteDir)
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("%w: decoding multistatus for %s: %v", ErrPROPFINDFailed, remoteDir, err)
	}

	base, err := url.Parse(target)
	if err != nil {
		return nil, err
	}
	self := strings.TrimSuffix(base.Path, "/")

	entries := make([]Entry, 0, len(ms.Responses))
	for _, r := range ms.Responses {
		p, err := hrefPath(r.Href)
		if err != nil {
			return nil, fmt.Errorf("%w: bad href %q: %v", ErrPROPFINDFailed, r.Href, err)
		}

		trimmed := strings.TrimSuffix(p, "/")
		if trimmed == self {
			continue
		}

		e := Entry{
			Name:  path.Base(trimmed),
			IsDir: strings.HasSuffix(p, "/"),
		}
		for _, ps := range r.Propstat {
			if !strings.Contains(ps.Status, " 200 ") {
				continue
			}
			if ps.Prop.ResourceType.Collection != nil {
				e.IsDir = true
			}
			if ps.Prop.ContentLength != "" {
				e.Size, _ = strconv.ParseInt(ps.Prop.ContentLength, 10, 64)
			}
		}
		if e.IsDir {
			e.Name += "/"
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// hrefPath returns the unescaped path of an href, which may be absolute or
// a full URL.
func hrefPath(href string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}

	return u.Path, nil
}
