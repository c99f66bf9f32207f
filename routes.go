package gate

import "strings"

var defaultRoutes = DefaultConfig().Routes

// IsPublic reports whether path is one of the default anonymous routes.
func IsPublic(path string) bool {
	return defaultRoutes.IsPublic(path)
}

// IsPublic reports whether path equals or ends with one of the public routes.
// Suffix matching lets grouped routes such as "/(auth)/login" count as public.
func (r RoutesConfig) IsPublic(path string) bool {
	for _, p := range r.Public {
		if p == "" {
			continue
		}
		if path == p || strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

// RedirectFor returns the route a settled gate should navigate to, if any.
//
//	authed=false, path not public, path != login  -> login
//	authed=true,  path public,     path != home   -> home
func (r RoutesConfig) RedirectFor(authed bool, path string) (string, bool) {
	public := r.IsPublic(path)
	switch {
	case !authed && !public && path != r.Login:
		return r.Login, true
	case authed && public && path != r.Home:
		return r.Home, true
	default:
		return "", false
	}
}
