package command

import (
	"github.com/CyberismoCom/cyberismo-engine/internal/projectconfig"
	"github.com/CyberismoCom/cyberismo-engine/internal/resource"
)

// CreateResource writes content's metadata file (and scaffolded content
// files for folder kinds) and registers the result in the resource cache,
// so it is immediately visible to ByName/Resources without waiting for a
// re-populate (spec §4.4 "create(content?)" for resources).
func (c *Commands) CreateResource(name resource.Name, content resource.Content) (*resource.Resource, error) {
	c.proj.Lock()
	defer c.proj.Unlock()

	r, err := resource.Create(c.proj.Resources.Env(), name, content)
	if err != nil {
		return nil, err
	}
	c.proj.Resources.AddResource(r)

	if err := c.log(projectconfig.OpResourceCreate, name.String(), nil); err != nil {
		return nil, err
	}
	if err := c.proj.Engine.Generate(""); err != nil {
		return nil, err
	}
	return r, nil
}
