//go:generate mockgen -source=../product_repository.go -destination=./mock_product_repository.go -package=mocks
//go:generate mockgen -source=../product_cache.go      -destination=./mock_product_cache.go      -package=mocks
//go:generate mockgen -source=../validator.go          -destination=./mock_validator.go          -package=mocks
//go:generate mockgen -source=../event_publisher.go    -destination=./mock_event_publisher.go    -package=mocks
//go:generate mockgen -source=../product_service.go    -destination=./mock_product_service.go    -package=mocks
//go:generate mockgen -source=../message_consumer.go   -destination=./mock_message_consumer.go   -package=mocks

package mocks
