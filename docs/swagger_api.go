package docs

// @title           Carona API
// @version         1.0
// @description     Carona is a ride sharing marketplace. Drivers offer rides with a fixed number of seats, passengers reserve and give back seats, drivers complete rides, and both sides rate each other once per completed ride.
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support
// @contact.url    http://www.swagger.io/support
// @contact.email  support@swagger.io

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
