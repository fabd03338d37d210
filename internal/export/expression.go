package export

import (
	"strconv"

	"google.golang.org/api/earthengine/v1"
)

// graph builds an Earth Engine expression. Every invocation is stored as a
// named value and referenced by key, so shared subexpressions are sent once.
type graph struct {
	values map[string]earthengine.ValueNode
	next   int
}

func newGraph() *graph {
	return &graph{values: make(map[string]earthengine.ValueNode)}
}

// invoke adds a function call and returns a reference to its result.
func (g *graph) invoke(fn string, args map[string]earthengine.ValueNode) earthengine.ValueNode {
	key := strconv.Itoa(g.next)
	g.next++
	g.values[key] = earthengine.ValueNode{
		FunctionInvocationValue: &earthengine.FunctionInvocationValue{
			FunctionName: fn,
			Arguments:    args,
		},
	}
	return earthengine.ValueNode{ValueReference: key}
}

// expression returns the graph with result as its output value.
func (g *graph) expression(result earthengine.ValueNode) *earthengine.Expression {
	return &earthengine.Expression{
		Values: g.values,
		Result: result.ValueReference,
	}
}

func constant(v any) earthengine.ValueNode {
	return earthengine.ValueNode{ConstantValue: v}
}

// alertVectors builds the graph that turns one alert image into polygons
// labelled by confidence and carrying the alert day of year.
func alertVectors(imageID string, spec ExportSpec) *earthengine.Expression {
	g := newGraph()

	image := g.invoke("Image.load", map[string]earthengine.ValueNode{
		"id": constant(imageID),
	})

	var region earthengine.ValueNode
	if spec.Region != nil {
		region = g.invoke("GeometryConstructors.MultiPolygon", map[string]earthengine.ValueNode{
			"coordinates": constant(spec.Region.Geometry),
			"geodesic":    constant(false),
		})
		image = g.invoke("Image.clip", map[string]earthengine.ValueNode{
			"input":    image,
			"geometry": region,
		})
	}

	// Keep probable and confirmed loss only.
	conf := g.invoke("Image.select", map[string]earthengine.ValueNode{
		"input":         image,
		"bandSelectors": constant([]string{spec.BandConf}),
	})
	mask := g.invoke("Image.gt", map[string]earthengine.ValueNode{
		"image1": conf,
		"image2": g.invoke("Image.constant", map[string]earthengine.ValueNode{
			"value": constant(0),
		}),
	})
	image = g.invoke("Image.updateMask", map[string]earthengine.ValueNode{
		"image": image,
		"mask":  mask,
	})

	conf = g.invoke("Image.select", map[string]earthengine.ValueNode{
		"input":         image,
		"bandSelectors": constant([]string{spec.BandConf}),
	})
	alertDate := g.invoke("Image.select", map[string]earthengine.ValueNode{
		"input":         image,
		"bandSelectors": constant([]string{spec.BandAlertDate}),
	})
	loss := g.invoke("Image.addBands", map[string]earthengine.ValueNode{
		"dstImg": conf,
		"srcImg": alertDate,
	})

	reducer := g.invoke("Reducer.setOutputs", map[string]earthengine.ValueNode{
		"reducer": g.invoke("Reducer.first", map[string]earthengine.ValueNode{}),
		"outputs": constant([]string{"alert_date"}),
	})

	projection := g.invoke("Image.projection", map[string]earthengine.ValueNode{
		"image": loss,
	})
	var crs earthengine.ValueNode
	if spec.CRS != "" {
		crs = g.invoke("Projection", map[string]earthengine.ValueNode{
			"crs": constant(spec.CRS),
		})
	} else {
		crs = projection
	}
	var scale earthengine.ValueNode
	if spec.Scale > 0 {
		scale = constant(spec.Scale)
	} else {
		scale = g.invoke("Projection.nominalScale", map[string]earthengine.ValueNode{
			"proj": projection,
		})
	}

	args := map[string]earthengine.ValueNode{
		"image":          loss,
		"reducer":        reducer,
		"crs":            crs,
		"scale":          scale,
		"labelProperty":  constant("conf"),
		"geometryType":   constant("polygon"),
		"eightConnected": constant(false),
		"maxPixels":      constant(1e13),
	}
	if spec.Region != nil {
		args["geometry"] = region
	} else {
		args["geometry"] = g.invoke("Image.geometry", map[string]earthengine.ValueNode{
			"feature": loss,
		})
	}

	return g.expression(g.invoke("Image.reduceToVectors", args))
}
