// Package nginx renders reverse-proxy site configurations. Rendering is
// pure; writing and activating the config is the shell proxy package's job.
package nginx

import (
	"fmt"
	"path"
)

// Conventional nginx config locations.
const (
	SitesAvailableDir = "/etc/nginx/sites-available"
	SitesEnabledDir   = "/etc/nginx/sites-enabled"
)

// Site is a reverse-proxy virtual-host record keyed by the repository name.
// One active site per repo name on a given host.
type Site struct {
	RepoName string
	AppPort  int
}

// AvailablePath returns the site-config path under sites-available.
func (s Site) AvailablePath() string {
	return path.Join(SitesAvailableDir, s.RepoName+".conf")
}

// EnabledPath returns the activation symlink path under sites-enabled.
func (s Site) EnabledPath() string {
	return path.Join(SitesEnabledDir, s.RepoName+".conf")
}

// Render produces the full site-config body: public port 80 proxied to the
// loopback app port, preserving WebSocket upgrades and the standard
// forwarding headers.
func (s Site) Render() string {
	return fmt.Sprintf(`server {
    listen 80;
    server_name _;

    location / {
        proxy_pass http://127.0.0.1:%d;
        proxy_http_version 1.1;
        proxy_set_header Upgrade $http_upgrade;
        proxy_set_header Connection "upgrade";
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
    }
}
`, s.AppPort)
}
