package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/video_hosting/internal/handlers"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
)

// Deps carries everything the route table needs. Wiring happens in
// main; this package only decides which handler guards which path.
type Deps struct {
	Auth          *middleware.Auth
	AuthHandler   *handlers.AuthHandler
	Videos        *handlers.VideoHandler
	Comments      *handlers.CommentHandler
	Likes         *handlers.LikeHandler
	Subscriptions *handlers.SubscriptionHandler
	Channels      *handlers.ChannelHandler
	Playlists     *handlers.PlaylistHandler
	Search        *handlers.SearchHandler
}

func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	// Public surface. OptionalAuth attaches the viewer where a public
	// view carries viewer-dependent fields.
	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.POST("/refresh", d.AuthHandler.Refresh)

	e.GET("/videos", d.Videos.GetVideos)
	e.GET("/videos/:id", d.Videos.GetVideo, d.Auth.OptionalAuth)
	e.GET("/videos/:videoId/comments", d.Comments.GetComments)
	e.GET("/search", d.Search.Search)

	e.GET("/channels/:username", d.Channels.GetChannelProfile, d.Auth.OptionalAuth)
	e.GET("/channels/:channelId/subscribers", d.Subscriptions.GetChannelSubscribers)

	// Everything below requires a live access token.
	auth := e.Group("", d.Auth.RequireAuth)

	auth.POST("/logout", d.AuthHandler.LogOut)
	auth.GET("/me", d.AuthHandler.CurrentUser)
	auth.PATCH("/me", d.AuthHandler.UpdateAccount)
	auth.POST("/me/password", d.AuthHandler.ChangePassword)
	auth.PATCH("/me/avatar", d.AuthHandler.UpdateAvatar)
	auth.PATCH("/me/cover", d.AuthHandler.UpdateCoverImage)

	auth.POST("/videos", d.Videos.PublishVideo)
	auth.PATCH("/videos/:id/thumbnail", d.Videos.UpdateThumbnail)
	auth.DELETE("/videos/:id", d.Videos.DeleteVideo)

	auth.POST("/videos/:videoId/comments", d.Comments.CreateComment)
	auth.PATCH("/comments/:commentId", d.Comments.UpdateComment)
	auth.DELETE("/comments/:commentId", d.Comments.DeleteComment)

	auth.POST("/videos/:videoId/like", d.Likes.ToggleVideoLike)
	auth.POST("/comments/:commentId/like", d.Likes.ToggleCommentLike)
	auth.GET("/me/liked-videos", d.Likes.GetLikedVideos)

	auth.POST("/channels/:channelId/subscribe", d.Subscriptions.ToggleSubscription)
	auth.GET("/me/subscriptions", d.Subscriptions.GetSubscribedChannels)

	auth.GET("/me/history", d.Channels.GetWatchHistory)

	auth.POST("/playlists", d.Playlists.CreatePlaylist)
	auth.GET("/playlists", d.Playlists.GetMyPlaylists)
	auth.POST("/playlists/:playlistId/videos/:videoId", d.Playlists.AddVideo)
	auth.DELETE("/playlists/:playlistId/videos/:videoId", d.Playlists.RemoveVideo)
	auth.DELETE("/playlists/:playlistId", d.Playlists.DeletePlaylist)
}
