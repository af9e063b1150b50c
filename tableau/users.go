package tableau

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	apperrors "github.com/jrsteele09/tableau-pat-provisioner/internal/errors"
	"github.com/jrsteele09/tableau-pat-provisioner/sessions"
	"github.com/jrsteele09/tableau-pat-provisioner/users"
	"github.com/pkg/errors"
)

const usersPageSize = 100

// FindUsersByName queries the session's site for users whose name equals name,
// following pagination until every match has been read.
func (c *Client) FindUsersByName(ctx context.Context, session *sessions.Session, name string) ([]users.User, error) {
	token := session.AuthToken()
	if token == "" {
		return nil, errors.Wrap(apperrors.ErrSessionClosed, "[Client.FindUsersByName]")
	}
	if session.SiteID == "" {
		return nil, errors.Wrap(apperrors.ErrInvalidRequest, "[Client.FindUsersByName] session has no site id")
	}

	matches := make([]users.User, 0)
	for page := 1; ; page++ {
		query := url.Values{
			"filter":     {"name:eq:" + name},
			"pageSize":   {strconv.Itoa(usersPageSize)},
			"pageNumber": {strconv.Itoa(page)},
		}
		endpoint := c.endpoint("sites/%s/users", url.PathEscape(session.SiteID)) + "?" + query.Encode()

		var response queryUsersResponse
		if err := c.do(ctx, http.MethodGet, endpoint, token, nil, &response); err != nil {
			return nil, errors.Wrapf(err, "[Client.FindUsersByName] %q", name)
		}
		for _, u := range response.Users.User {
			matches = append(matches, users.User{
				ID:       u.ID,
				Name:     u.Name,
				FullName: u.FullName,
				Email:    u.Email,
				SiteRole: u.SiteRole,
			})
		}

		total, err := strconv.Atoi(response.Pagination.TotalAvailable)
		if err != nil || len(response.Users.User) == 0 || page*usersPageSize >= total {
			return matches, nil
		}
	}
}
