package cerr

import (
	"fmt"
	"strings"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
)

type F map[string]any

// Ctx accumulates log fields to be attached to an eventual error.
// All field values ride along as error details so that nothing is
// lost between the failure site and the log line.
type Ctx struct {
	fields  log.Fields
	wrapped error
}

func Field(key string, value any) Ctx {
	return Ctx{}.Field(key, value)
}

func Fields(fields F) Ctx {
	return Ctx{}.Fields(fields)
}

func Wrap(err error) Ctx {
	return Ctx{}.Wrap(err)
}

func Error(msg string) error {
	return Ctx{}.Error(msg)
}

func (c Ctx) Field(key string, value any) Ctx {
	newFields := log.Fields{}
	for k, v := range c.fields {
		newFields[k] = v
	}
	newFields[key] = value

	return Ctx{
		fields:  newFields,
		wrapped: c.wrapped,
	}
}

func (c Ctx) Fields(fields F) Ctx {
	newCtx := c
	for k, v := range fields {
		newCtx = newCtx.Field(k, v)
	}

	return newCtx
}

func (c Ctx) Wrap(err error) Ctx {
	return Ctx{
		fields:  c.fields,
		wrapped: err,
	}
}

func (c Ctx) Error(msg string) error {
	var err error
	if c.wrapped != nil {
		err = errors.Wrap(c.wrapped, msg)
	} else {
		err = errors.New(msg)
	}

	for k, v := range c.fields {
		err = errors.WithDetail(err, fmt.Sprintf("%s: %v", k, v))
	}

	return err
}

func Log(err error) {
	details := errors.GetAllDetails(err)
	if len(details) == 0 {
		log.Error(err.Error())
		return
	}

	log.WithField("details", strings.Join(details, ", ")).
		Error(err.Error())
}
