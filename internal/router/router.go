package router

import (
	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/api"
	"github.com/foodgram/backend/internal/middleware"
)

// Options carries the handlers and middleware the route table needs.
type Options struct {
	Auth      *api.AuthHandler
	Users     *api.UserHandler
	Catalog   *api.CatalogHandler
	Recipes   *api.RecipeHandler
	Validator middleware.TokenValidator
	// RecipeCreateLimiter is optional; nil disables rate limiting.
	RecipeCreateLimiter *middleware.RateLimiter
	AllowedOrigins      []string
	// MediaDir, when set, is served under /media/ for locally stored
	// images.
	MediaDir string
}

// Setup configures the application routes. Reads are open (with
// optional viewer resolution for per-user flags); mutations require a
// valid bearer token before any object is touched.
func Setup(opts Options) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.CORS(opts.AllowedOrigins))

	if opts.MediaDir != "" {
		router.Static("/media", opts.MediaDir)
	}

	requireAuth := middleware.AuthMiddleware(opts.Validator)
	optionalAuth := middleware.OptionalAuthMiddleware(opts.Validator)

	root := router.Group("/api")

	auth := root.Group("/auth/token")
	{
		auth.POST("/login", opts.Auth.Login)
		auth.POST("/logout", requireAuth, opts.Auth.Logout)
	}

	users := root.Group("/users")
	{
		users.POST("/", opts.Users.Register)
		users.GET("/", optionalAuth, opts.Users.List)
		users.GET("/me", requireAuth, opts.Users.Me)
		users.GET("/subscriptions", requireAuth, opts.Users.Subscriptions)
		users.POST("/set_password", requireAuth, opts.Users.SetPassword)
		users.GET("/:id", optionalAuth, opts.Users.Get)
		users.POST("/:id/subscribe", requireAuth, opts.Users.Subscribe)
		users.DELETE("/:id/subscribe", requireAuth, opts.Users.Unsubscribe)
	}

	tags := root.Group("/tags")
	{
		tags.GET("/", opts.Catalog.ListTags)
		tags.GET("/:id", opts.Catalog.GetTag)
	}

	ingredients := root.Group("/ingredients")
	{
		ingredients.GET("/", opts.Catalog.ListIngredients)
		ingredients.GET("/:id", opts.Catalog.GetIngredient)
	}

	recipes := root.Group("/recipes")
	{
		recipes.GET("/", optionalAuth, opts.Recipes.List)
		recipes.GET("/download_shopping_cart", requireAuth, opts.Recipes.DownloadShoppingCart)
		recipes.GET("/:id", optionalAuth, opts.Recipes.Get)

		createHandlers := []gin.HandlerFunc{requireAuth}
		if opts.RecipeCreateLimiter != nil {
			createHandlers = append(createHandlers, opts.RecipeCreateLimiter.Middleware())
		}
		createHandlers = append(createHandlers, opts.Recipes.Create)
		recipes.POST("/", createHandlers...)

		recipes.PATCH("/:id", requireAuth, opts.Recipes.Update)
		recipes.DELETE("/:id", requireAuth, opts.Recipes.Delete)
		recipes.POST("/:id/favorite", requireAuth, opts.Recipes.Favorite)
		recipes.DELETE("/:id/favorite", requireAuth, opts.Recipes.Unfavorite)
		recipes.POST("/:id/shopping_cart", requireAuth, opts.Recipes.AddToCart)
		recipes.DELETE("/:id/shopping_cart", requireAuth, opts.Recipes.RemoveFromCart)
	}

	return router
}
