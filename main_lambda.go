//go:build lambda

package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"k8s.io/klog/v2"
)

func main() {
	h := lambdaHandler{logger: klog.NewKlogr().WithName("lambda")}
	lambda.Start(h.handle)
}
