package telemetry

import "os/user"

// userGroups resolves the group names of username through the system
// account database. Unknown users and unresolvable groups yield no entries.
func userGroups(username string) []string {
	u, err := user.Lookup(username)
	if err != nil {
		return []string{}
	}
	gids, err := u.GroupIds()
	if err != nil {
		return []string{}
	}
	groups := make([]string, 0, len(gids))
	for _, gid := range gids {
		g, err := user.LookupGroupId(gid)
		if err != nil {
			continue
		}
		groups = append(groups, g.Name)
	}
	return groups
}
