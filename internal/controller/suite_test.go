package controller

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/apprenticelog/apprenticelog/pkg/logger"
)

func TestController(t *testing.T) {
	RegisterFailHandler(Fail)

	logger.InitWithOutput(GinkgoWriter)

	RunSpecs(t, "Controller Suite")
}
