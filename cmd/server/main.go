package main

import _ "github.com/agrineural/agrineural/docs"

// @title           AgriNeural API
// @version         1.0
// @description     Aerial image ingestion and crop anomaly reporting for registered farms
// @BasePath        /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token
func main() {
	Execute()
}
