package target

import "strings"

// HostPrefix returns the host label(s) of a node in front of the
// environment prefix. "gss" and "none" map to the bare node prefix.
func (t *Target) HostPrefix(node string) string {
	switch {
	case node == "gss" || node == "none":
		return t.NodePrefix
	case t.NodePrefix == "":
		return node
	default:
		return node + "." + t.NodePrefix
	}
}

func (t *Target) host(node string) string {
	return t.HostPrefix(node) + t.targetPrefix + "." + t.BaseURL
}

// NodeURL is the server root of a node, e.g. https://sunet.drive.test.example.org
func (t *Target) NodeURL(node string) string {
	return "https://" + t.host(node)
}

// NodeHost returns the bare host name of a node.
func (t *Target) NodeHost(node string) string {
	return t.host(node)
}

// GSSURL is the global site selector entry point.
func (t *Target) GSSURL() string {
	if t.Environment == "prod" {
		return "https://drive." + t.BaseURL
	}

	return "https://drive.test." + t.BaseURL
}

// LoginURL is the direct (non-SSO) login page of a node.
func (t *Target) LoginURL(node string) string {
	return t.NodeURL(node) + t.IndexSuffix + "/login?redirect_url=&direct=1"
}

// StatusURL is the unauthenticated status.php endpoint.
func (t *Target) StatusURL(node string) string {
	return t.NodeURL(node) + "/status.php"
}

// CapabilitiesURL is the OCS capabilities endpoint.
func (t *Target) CapabilitiesURL(node string) string {
	return t.NodeURL(node) + "/ocs/v1.php/cloud/capabilities?format=json"
}

// ServerInfoURL is the serverinfo app endpoint.
func (t *Target) ServerInfoURL(node string) string {
	return t.NodeURL(node) + "/ocs/v2.php/apps/serverinfo/api/v1/info?format=json"
}

// WebDAVRoot is the path of a user's files collection.
func (t *Target) WebDAVRoot(user string) string {
	return "/remote.php/dav/files/" + user + "/"
}

// WebDAVURL is the absolute URL of a user's files collection on a node.
func (t *Target) WebDAVURL(node, user string) string {
	return t.NodeURL(node) + t.WebDAVRoot(user)
}

// TrashbinURL is the absolute URL of a user's trash bin on a node.
func (t *Target) TrashbinURL(node, user string) string {
	return strings.Replace(t.WebDAVURL(node, user), "/dav/files/", "/dav/trashbin/", 1)
}

// FullNodeStatusURLs returns status.php URLs for every full node.
func (t *Target) FullNodeStatusURLs() []string {
	return t.statusURLs(t.FullNodes)
}

// MultiNodeStatusURLs returns status.php URLs for every multi node.
func (t *Target) MultiNodeStatusURLs() []string {
	return t.statusURLs(t.MultiNodes)
}

// AllNodeStatusURLs returns status.php URLs for every node.
func (t *Target) AllNodeStatusURLs() []string {
	return t.statusURLs(t.AllNodes)
}

func (t *Target) statusURLs(nodes []string) []string {
	urls := make([]string, 0, len(nodes))
	for _, n := range nodes {
		urls = append(urls, t.StatusURL(n))
	}

	return urls
}
