package http

import (
	"net/http"

	"github.com/dkeye/Chat/internal/domain"
	"github.com/dkeye/Chat/internal/store"
	"github.com/gin-gonic/gin"
)

// getUser looks a user up by ?userId= or ?username=.
func (a *API) getUser(c *gin.Context) {
	var (
		u   *domain.User
		err error
	)
	switch {
	case c.Query("userId") != "":
		u, err = a.Store.UserByID(domain.UserID(c.Query("userId")))
	case c.Query("username") != "":
		u, err = a.Store.UserByUsername(c.Query("username"))
	default:
		badRequest(c, "userId or username required")
		return
	}
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) searchUsers(c *gin.Context) {
	users, err := a.Store.SearchUsers(c.Query("q"), currentUser(c), 20)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *API) updateUser(c *gin.Context) {
	me, ok := selfOnly(c, "id")
	if !ok {
		return
	}
	var p store.ProfileUpdate
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c, "invalid profile")
		return
	}
	u, err := a.Store.UpdateUser(me, p)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) friendRequest(c *gin.Context) {
	if err := a.Store.SendFriendRequest(currentUser(c), domain.UserID(c.Param("id"))); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request sent"})
}

func (a *API) acceptFriend(c *gin.Context) {
	if err := a.Store.AcceptFriendRequest(currentUser(c), domain.UserID(c.Param("id"))); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "friend request accepted"})
}

func (a *API) unfriend(c *gin.Context) {
	if err := a.Store.Unfriend(currentUser(c), domain.UserID(c.Param("id"))); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfriended"})
}

func (a *API) friends(c *gin.Context) {
	friends, err := a.Store.Friends(domain.UserID(c.Param("id")))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, friends)
}

func (a *API) friendRequests(c *gin.Context) {
	me, ok := selfOnly(c, "id")
	if !ok {
		return
	}
	reqs, err := a.Store.FriendRequests(me)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}
