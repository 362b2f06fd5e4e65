package databases

import (
	"github.com/gramasevaka/gs-portal-api/models"
)

const (
	serviceName        = "services"
	serviceRequestName = "servicerequests"
)

// ServiceDatabase contains the methods to use with the service catalog
type ServiceDatabase interface {
	EntityDatabase[models.Service]
}

// NewServiceDatabase initializes a new instance of service database with the provided db connection
func NewServiceDatabase(db DatabaseHelper) ServiceDatabase {
	return NewEntityDatabase[models.Service](db, serviceName)
}

// ServiceRequestDatabase contains the methods to use with the service request database
type ServiceRequestDatabase interface {
	EntityDatabase[models.ServiceRequest]
}

// NewServiceRequestDatabase initializes a new instance of service request database with the provided db connection
func NewServiceRequestDatabase(db DatabaseHelper) ServiceRequestDatabase {
	return NewEntityDatabase[models.ServiceRequest](db, serviceRequestName)
}
