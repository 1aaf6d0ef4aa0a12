package mailbox

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/woxQAQ/hmbridge/internal/macro"
)

// Handler runs a remotely invoked method with its payload.
type Handler func(ctx context.Context, arg macro.Value) error

// MethodRef describes a method declaration as the caller sees it.
type MethodRef struct {
	Module string
	Type   string
	Name   string
	Public bool
	Static bool
}

// Key returns "Type.Name".
func (r MethodRef) Key() string {
	return methodKey(r.Type, r.Name)
}

// Method is a registered, invocable method.
type Method struct {
	Module  string
	Type    string
	Name    string
	Public  bool
	Static  bool
	Param   macro.Kind
	Handler Handler
}

// Ref returns the declaration of m.
func (m *Method) Ref() MethodRef {
	return MethodRef{
		Module: m.Module,
		Type:   m.Type,
		Name:   m.Name,
		Public: m.Public,
		Static: m.Static,
	}
}

// Key returns "Type.Name".
func (m *Method) Key() string {
	return methodKey(m.Type, m.Name)
}

func methodKey(typeName, name string) string {
	return typeName + "." + name
}

// Registry maps "Type.Name" to the methods macro text may invoke by name.
// Every method is checked when it is registered: it must belong to the
// registry's own module and be public and static.
type Registry struct {
	sync.RWMutex
	module  string
	methods map[string][]*Method
	logger  *zap.Logger
}

// NewRegistry creates a registry for methods declared in module.
func NewRegistry(module string, logger *zap.Logger) *Registry {
	return &Registry{
		module:  module,
		methods: make(map[string][]*Method),
		logger:  logger.With(zap.String("component", "method-registry")),
	}
}

// Module returns the module path the registry accepts.
func (r *Registry) Module() string {
	return r.module
}

// Register adds a method. Overloads of one name must differ in parameter kind.
func (r *Registry) Register(m *Method) error {
	if m == nil || m.Type == "" || m.Name == "" {
		return &InvalidMethodError{Key: "<unnamed>", Message: "type and method name are required"}
	}
	if m.Handler == nil {
		return &InvalidMethodError{Key: m.Key(), Message: "handler is nil"}
	}
	if m.Param == 0 {
		m.Param = macro.KindText
	}
	if reason, ok := Check(r.module, m.Ref()); !ok {
		return &macro.RejectedError{Reason: reason, Module: m.Module, Type: m.Type, Method: m.Name}
	}

	r.Lock()
	defer r.Unlock()

	key := m.Key()
	for _, existing := range r.methods[key] {
		if existing.Param == m.Param {
			return &MethodAlreadyRegisteredError{Key: key, Param: m.Param}
		}
	}
	r.methods[key] = append(r.methods[key], m)

	r.logger.Info("Method registered",
		zap.String("method", key),
		zap.Stringer("param", m.Param),
	)

	return nil
}

// Check validates a declaration against the registry rules, in order: own
// module, static, public. It does not look at registered methods.
func Check(module string, ref MethodRef) (macro.RejectReason, bool) {
	switch {
	case ref.Module != module:
		return macro.RejectNotInOwnModule, false
	case !ref.Static:
		return macro.RejectNotStatic, false
	case !ref.Public:
		return macro.RejectNotPublic, false
	}
	return 0, true
}

// Lookup returns the overloads registered under typeName.name.
func (r *Registry) Lookup(typeName, name string) []*Method {
	r.RLock()
	defer r.RUnlock()

	methods := r.methods[methodKey(typeName, name)]
	result := make([]*Method, len(methods))
	copy(result, methods)
	return result
}

// Has reports whether any overload of typeName.name is registered.
func (r *Registry) Has(typeName, name string) bool {
	r.RLock()
	defer r.RUnlock()

	return len(r.methods[methodKey(typeName, name)]) > 0
}

// Resolve picks the method to run for a payload. A single candidate wins
// outright; with overloads the payload's runtime kind selects the parameter.
func (r *Registry) Resolve(module, typeName, name string, payload any) (*Method, error) {
	if module != r.module {
		return nil, &macro.RejectedError{
			Reason: macro.RejectNotInOwnModule, Module: module, Type: typeName, Method: name,
		}
	}

	candidates := r.Lookup(typeName, name)
	switch len(candidates) {
	case 0:
		return nil, &macro.RejectedError{
			Reason: macro.RejectMissing, Module: module, Type: typeName, Method: name,
		}
	case 1:
		return candidates[0], nil
	}

	kind := PayloadKind(payload)
	for _, m := range candidates {
		if m.Param == kind {
			return m, nil
		}
	}
	return nil, &AmbiguousMethodError{Key: methodKey(typeName, name), Payload: kind}
}

// PayloadKind classifies a payload the way overload resolution sees it.
func PayloadKind(payload any) macro.Kind {
	switch v := payload.(type) {
	case macro.Value:
		return v.Kind()
	case string:
		return macro.KindText
	case nil:
		return macro.KindText
	}
	return macro.KindInteger
}

// List returns every registered method ordered by key.
func (r *Registry) List() []*Method {
	r.RLock()
	defer r.RUnlock()

	keys := make([]string, 0, len(r.methods))
	for k := range r.methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var result []*Method
	for _, k := range keys {
		result = append(result, r.methods[k]...)
	}
	return result
}

// Unregister removes every overload of typeName.name.
func (r *Registry) Unregister(typeName, name string) {
	r.Lock()
	defer r.Unlock()

	key := methodKey(typeName, name)
	if _, ok := r.methods[key]; !ok {
		return
	}
	delete(r.methods, key)

	r.logger.Info("Method unregistered", zap.String("method", key))
}

// Count returns the number of registered overloads.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	n := 0
	for _, ms := range r.methods {
		n += len(ms)
	}
	return n
}
